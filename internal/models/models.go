package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a staff member allowed into the admin web view.
type User struct {
	gorm.Model
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
}

const (
	TypeTrail       = "trail"
	TypeDisturbance = "disturbance"
)

// Report is the local copy of a trail or disturbance report filed from Slack.
type Report struct {
	gorm.Model
	RemoteID        string    `gorm:"index"`          // Node UUID on the docent site, empty if the site did not return one
	Type            string    `gorm:"not null"`       // trail | disturbance
	InteractionTime time.Time `gorm:"index;not null"` // When the observation happened
	Place           string
	WildlifeIssues  string // Comma separated display names
	OtherIssues     string // Comma separated display names
	Details         string
	Reporter        string // Site display name
	ReporterSlackID string `gorm:"index"`
	Warning         string // Non-fatal message returned by the site on create
}

// CacheEntry is a row of the day-keyed cache table.
type CacheEntry struct {
	Key       string    `gorm:"column:cache_key;primaryKey"`
	Value     string    `gorm:"column:cache_value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}
