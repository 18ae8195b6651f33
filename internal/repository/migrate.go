package repository

import (
	"fmt"

	"gorm.io/gorm"

	"buscador-gpt/internal/model"
)

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Message{},
		&model.Assistant{},
		&model.TrainingFile{},
		&model.SearchActivity{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}
