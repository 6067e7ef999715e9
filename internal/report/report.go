// Package report files trail and disturbance reports on the docent site and
// keeps a local copy for the admin view.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"docent_bot/internal/contentapi"
	"docent_bot/internal/models"
	"docent_bot/internal/ws"
)

const usersTTL = 8 * time.Hour

var (
	ErrUnknownReporter = errors.New("report: slack user has no docent site account")
	ErrNoPlace         = errors.New("report: a place is required")
	ErrNotFound        = errors.New("report: not found")
)

// Site is the docent site API the service writes through.
type Site interface {
	CreateReport(ctx context.Context, r contentapi.NewReport) (id, warning string, err error)
	ListUsers(ctx context.Context) ([]models.SiteUser, error)
}

// Feed receives created reports.
type Feed interface {
	Broadcast(topic, eventType string, payload any)
}

// Submission is a completed report dialog.
type Submission struct {
	Type           string
	When           time.Time
	Place          models.Term
	WildlifeIssues []models.Term
	OtherIssues    []models.Term
	Details        string

	SlackUserID   string
	SlackEmail    string
	SlackRealName string
}

type Service struct {
	db     *gorm.DB
	site   Site
	feed   Feed
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	users     []models.SiteUser
	usersSeen time.Time
}

func NewService(db *gorm.DB, site Site, feed Feed, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:     db,
		site:   site,
		feed:   feed,
		now:    time.Now,
		logger: logger.With(slog.String("component", "report")),
	}
}

// Create files s on the site and stores the local copy. A warning from the
// site is kept on the report and does not fail the call.
func (s *Service) Create(ctx context.Context, sub Submission) (*models.Report, error) {
	if sub.Place.ID == "" {
		return nil, ErrNoPlace
	}
	reporter, err := s.MatchSiteUser(ctx, sub.SlackEmail, sub.SlackRealName)
	if err != nil {
		return nil, err
	}
	when := sub.When
	if when.IsZero() {
		when = s.now()
	}

	remoteID, warning, err := s.site.CreateReport(ctx, contentapi.NewReport{
		When:        when,
		Details:     sub.Details,
		WildlifeIDs: termIDs(sub.WildlifeIssues),
		OtherIDs:    termIDs(sub.OtherIssues),
		ReporterID:  reporter.ID,
		PlaceID:     sub.Place.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("report: create on site: %w", err)
	}

	rep := &models.Report{
		RemoteID:        remoteID,
		Type:            sub.Type,
		InteractionTime: when,
		Place:           sub.Place.Name,
		WildlifeIssues:  termNames(sub.WildlifeIssues),
		OtherIssues:     termNames(sub.OtherIssues),
		Details:         sub.Details,
		Reporter:        reporter.Name,
		ReporterSlackID: sub.SlackUserID,
		Warning:         warning,
	}
	if err := s.db.WithContext(ctx).Create(rep).Error; err != nil {
		// The site has it; only the admin copy is missing.
		s.logger.ErrorContext(ctx, "store local report copy", slog.String("remote_id", remoteID), slog.Any("error", err))
		return rep, nil
	}

	s.logger.InfoContext(ctx, "report created",
		slog.String("report", DisplayID(*rep)),
		slog.String("remote_id", remoteID),
		slog.String("warning", warning))
	if s.feed != nil {
		s.feed.Broadcast(ws.TopicReports, "report_created", rep)
	}
	return rep, nil
}

// Recent returns the newest local reports first.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.Report, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var reps []models.Report
	if err := s.db.WithContext(ctx).Order("interaction_time desc").Limit(limit).Find(&reps).Error; err != nil {
		return nil, fmt.Errorf("report: list: %w", err)
	}
	return reps, nil
}

// Get looks a report up by its display id (TR-12, dr-3) or bare number.
func (s *Service) Get(ctx context.Context, name string) (*models.Report, error) {
	id, err := ParseDisplayID(name)
	if err != nil {
		return nil, err
	}
	var rep models.Report
	err = s.db.WithContext(ctx).First(&rep, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("report: get %s: %w", name, err)
	}
	return &rep, nil
}

// MatchSiteUser finds the site account for a Slack user by email, then by
// case-insensitive name.
func (s *Service) MatchSiteUser(ctx context.Context, email, realName string) (models.SiteUser, error) {
	users, err := s.siteUsers(ctx)
	if err != nil {
		return models.SiteUser{}, err
	}
	if email != "" {
		for _, u := range users {
			if strings.EqualFold(u.Email, email) {
				return u, nil
			}
		}
	}
	if realName != "" {
		for _, u := range users {
			if strings.EqualFold(u.Name, realName) {
				return u, nil
			}
		}
	}
	return models.SiteUser{}, ErrUnknownReporter
}

func (s *Service) siteUsers(ctx context.Context) ([]models.SiteUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users != nil && s.now().Sub(s.usersSeen) < usersTTL {
		return s.users, nil
	}
	users, err := s.site.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: list site users: %w", err)
	}
	s.users, s.usersSeen = users, s.now()
	return users, nil
}

// DisplayID is TR-<id> for trail and DR-<id> for disturbance reports.
func DisplayID(r models.Report) string {
	switch r.Type {
	case models.TypeTrail:
		return fmt.Sprintf("TR-%d", r.ID)
	case models.TypeDisturbance:
		return fmt.Sprintf("DR-%d", r.ID)
	default:
		return strconv.FormatUint(uint64(r.ID), 10)
	}
}

func ParseDisplayID(name string) (uint, error) {
	n := strings.TrimSpace(name)
	if len(n) > 3 && (strings.EqualFold(n[:3], "TR-") || strings.EqualFold(n[:3], "DR-")) {
		n = n[3:]
	}
	id, err := strconv.ParseUint(n, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return uint(id), nil
}

func termIDs(terms []models.Term) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, t.ID)
	}
	return out
}

func termNames(terms []models.Term) string {
	names := make([]string, 0, len(terms))
	for _, t := range terms {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}
