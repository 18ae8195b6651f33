package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"buscador-gpt/internal/model"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *model.SearchActivity) error {
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("create search activity failed: %w", err)
	}
	return nil
}

// ListBetween returns activity in [from, to) ordered by time.
func (r *ActivityRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.SearchActivity, error) {
	var out []model.SearchActivity
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list search activity failed: %w", err)
	}
	return out, nil
}

func (r *ActivityRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.SearchActivity{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge search activity failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}
