package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docent_bot/internal/models"
)

// GormStore keeps entries in the cache_entries table.
type GormStore struct {
	db     *gorm.DB
	now    func() time.Time
	logger *slog.Logger
}

func NewGormStore(db *gorm.DB, logger *slog.Logger) *GormStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GormStore{
		db:     db,
		now:    time.Now,
		logger: logger.With(slog.String("component", "cache"), slog.String("backend", "gorm")),
	}
}

func (s *GormStore) find(ctx context.Context, key string) (*models.CacheEntry, error) {
	var rows []models.CacheEntry
	if err := s.db.WithContext(ctx).Where("cache_key = ?", key).Limit(2).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		s.logger.ErrorContext(ctx, "multiple cache rows for key", slog.String("key", key))
	}
	return &rows[0], nil
}

func (s *GormStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	row, err := s.find(ctx, key)
	if err != nil || row == nil {
		return false, err
	}
	if err := decode(key, []byte(row.Value), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *GormStore) Put(ctx context.Context, key string, value any, policy WritePolicy) error {
	raw, err := Encode(value)
	if err != nil {
		return err
	}
	if policy == SkipIfUnchanged {
		existing, err := s.find(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil && existing.Value == string(raw) {
			s.logger.DebugContext(ctx, "cache value unchanged", slog.String("key", key))
			return nil
		}
	}

	entry := models.CacheEntry{Key: key, Value: string(raw), UpdatedAt: s.now().UTC()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"cache_value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", key, err)
	}
	s.logger.InfoContext(ctx, "cache set", slog.String("key", key), slog.String("policy", policy.String()))
	return nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("cache_key = ?", key).Delete(&models.CacheEntry{}).Error; err != nil {
		return fmt.Errorf("cache: delete %s: %w", key, err)
	}
	s.logger.InfoContext(ctx, "cache delete", slog.String("key", key))
	return nil
}

func (s *GormStore) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	row, err := s.find(ctx, key)
	if err != nil || row == nil {
		return time.Time{}, false, err
	}
	return row.UpdatedAt, true, nil
}

// Prune deletes entries last written before the given instant.
func (s *GormStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("updated_at < ?", before.UTC()).Delete(&models.CacheEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("cache: prune: %w", res.Error)
	}
	return res.RowsAffected, nil
}
