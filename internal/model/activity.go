package model

import "time"

// SearchActivity records one successful send for the admin report.
type SearchActivity struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	Email          string    `gorm:"size:128;not null" json:"email"`
	ConversationID string    `gorm:"size:36;index" json:"conversation_id"`
	AssistantUsed  string    `gorm:"size:128" json:"assistant_used"`
	Mode           string    `gorm:"size:32" json:"mode"`
	Question       string    `gorm:"type:text;not null" json:"question"`
	Answer         string    `gorm:"type:text" json:"answer"`
	ClientIP       string    `gorm:"size:64" json:"client_ip"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}
