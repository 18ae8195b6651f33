package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"buscador-gpt/internal/model"
)

type AssistantRepository struct {
	db *gorm.DB
}

func NewAssistantRepository(db *gorm.DB) *AssistantRepository {
	return &AssistantRepository{db: db}
}

func (r *AssistantRepository) Create(ctx context.Context, assistant *model.Assistant) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(assistant).Error; err != nil {
		return fmt.Errorf("create assistant failed: %w", err)
	}
	return nil
}

func (r *AssistantRepository) Update(ctx context.Context, assistant *model.Assistant) error {
	err := r.db.WithContext(ctx).Model(&model.Assistant{}).
		Where("id = ? AND user_id = ?", assistant.ID, assistant.UserID).
		Updates(map[string]interface{}{
			"name":         assistant.Name,
			"description":  assistant.Description,
			"instructions": assistant.Instructions,
			"icon":         assistant.Icon,
			"updated_at":   assistant.UpdatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("update assistant failed: %w", err)
	}
	return nil
}

func (r *AssistantRepository) GetByIDAndUserID(ctx context.Context, id string, userID uint) (*model.Assistant, error) {
	var assistant model.Assistant
	err := r.db.WithContext(ctx).
		Preload("TrainingFiles", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&assistant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get assistant failed: %w", err)
	}
	return &assistant, nil
}

func (r *AssistantRepository) ListByUserID(ctx context.Context, userID uint) ([]model.Assistant, error) {
	var assistants []model.Assistant
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&assistants).Error; err != nil {
		return nil, fmt.Errorf("list assistants failed: %w", err)
	}
	return assistants, nil
}

func (r *AssistantRepository) DeleteByIDAndUserID(ctx context.Context, id string, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Assistant{})
		if res.Error != nil {
			return fmt.Errorf("delete assistant failed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Where("assistant_id = ?", id).Delete(&model.TrainingFile{}).Error; err != nil {
			return fmt.Errorf("delete training files failed: %w", err)
		}
		return nil
	})
}

func (r *AssistantRepository) AddTrainingFile(ctx context.Context, file *model.TrainingFile) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return fmt.Errorf("create training file failed: %w", err)
	}
	return nil
}
