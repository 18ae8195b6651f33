package model

import (
	"time"

	"github.com/google/uuid"
)

const DefaultAssistantIcon = "🤖"

// Assistant is a user-owned custom profile. Its instructions become the
// system message of a send; they are never copied into stored messages.
type Assistant struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	Name          string         `gorm:"size:128;not null" json:"name"`
	Description   string         `gorm:"size:512" json:"description"`
	Instructions  string         `gorm:"type:text;not null" json:"instructions"`
	Icon          string         `gorm:"size:32" json:"icon"`
	TrainingFiles []TrainingFile `gorm:"foreignKey:AssistantID;constraint:OnDelete:CASCADE" json:"training_files,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func NewAssistant(userID uint, name, description, instructions, icon string) *Assistant {
	if icon == "" {
		icon = DefaultAssistantIcon
	}
	return &Assistant{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		Description:  description,
		Instructions: instructions,
		Icon:         icon,
	}
}

type TrainingFile struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	AssistantID      string    `gorm:"size:36;not null;index" json:"assistant_id"`
	FileName         string    `gorm:"size:255;not null" json:"file_name"`
	FileType         string    `gorm:"size:128;not null" json:"file_type"`
	FileSize         int64     `gorm:"not null" json:"file_size"`
	FileKey          string    `gorm:"size:512;not null" json:"file_key"`
	ProcessedContent string    `gorm:"type:text" json:"processed_content,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
