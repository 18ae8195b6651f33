package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	DefaultConversationTitle = "Nueva conversación"
	// MaxTitleRunes matches the size of the title column.
	MaxTitleRunes = 128

	titleMaxWords = 6
	titleMaxRunes = 60
)

// Conversation keeps its messages in insertion order, which is chronological.
type Conversation struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Title       string    `gorm:"size:128;not null" json:"title"`
	TitleEdited bool      `gorm:"not null;default:false" json:"title_edited"`
	Messages    []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"messages"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false;index" json:"updated_at"`
}

func NewConversation(userID uint, now time.Time) *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     DefaultConversationTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append validates every message first and leaves the conversation untouched
// when any of them is invalid.
func (c *Conversation) Append(now time.Time, msgs ...Message) error {
	for _, msg := range msgs {
		if err := msg.Validate(); err != nil {
			return err
		}
	}
	for _, msg := range msgs {
		msg.ID = 0
		msg.ConversationID = c.ID
		msg.Seq = len(c.Messages)
		c.Messages = append(c.Messages, msg)
	}
	c.touch(now)
	if !c.TitleEdited {
		if first, ok := c.FirstUserMessage(); ok {
			c.Title = DeriveTitle(first.Content)
		}
	}
	return nil
}

// Rename pins the title; later appends no longer derive it.
func (c *Conversation) Rename(title string, now time.Time) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultConversationTitle
	}
	c.Title = ClampTitle(title)
	c.TitleEdited = true
	c.touch(now)
}

func ClampTitle(title string) string {
	if utf8.RuneCountInString(title) > MaxTitleRunes {
		return string([]rune(title)[:MaxTitleRunes])
	}
	return title
}

func (c *Conversation) FirstUserMessage() (Message, bool) {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			return msg, true
		}
	}
	return Message{}, false
}

func (c *Conversation) touch(now time.Time) {
	if now.Before(c.CreatedAt) {
		now = c.CreatedAt
	}
	c.UpdatedAt = now
}

// DeriveTitle takes the leading words of text, capped in words and runes.
func DeriveTitle(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return DefaultConversationTitle
	}
	cut := len(words) > titleMaxWords
	if cut {
		words = words[:titleMaxWords]
	}
	title := strings.Join(words, " ")
	if utf8.RuneCountInString(title) > titleMaxRunes {
		title = strings.TrimSpace(string([]rune(title)[:titleMaxRunes]))
		cut = true
	}
	if cut {
		title += "…"
	}
	return title
}
