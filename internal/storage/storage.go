package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"docent_bot/internal/config"
	"docent_bot/internal/models"
)

// ConnectDatabase opens the postgres database holding reports, admin users
// and, for the postgres cache backend, cache entries.
func ConnectDatabase(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: connect database: %w", err)
	}
	log.Info("database connected", slog.String("host", cfg.Host), slog.String("name", cfg.Name))
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Report{}, &models.CacheEntry{}); err != nil {
		return fmt.Errorf("storage: migrate: %w", err)
	}
	return nil
}

// NewRedis returns a client and checks the server answers.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("storage: redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// EnsureAdmin creates the admin account when email is set and unknown.
func EnsureAdmin(db *gorm.DB, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("storage: find admin: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("storage: hash admin password: %w", err)
	}
	user := models.User{Name: "admin", Email: email, PasswordHash: string(hash)}
	if err := db.Create(&user).Error; err != nil {
		return false, fmt.Errorf("storage: create admin: %w", err)
	}
	return true, nil
}
