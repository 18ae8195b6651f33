package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

var (
	ErrUnknownRole           = errors.New("unknown message role")
	ErrEmptyContent          = errors.New("message content is empty")
	ErrUnexpectedAttachments = errors.New("only user messages may carry attachments")
)

// Role is the closed set of message authors.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleSystem:
		return RoleSystem, nil
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant:
		return RoleAssistant, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode role failed: %w", err)
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type Attachment struct {
	FileName       string `json:"fileName"`
	FileType       string `json:"fileType"`
	FileStorageKey string `json:"fileStorageKey"`
}

// Message is immutable once appended to a Conversation. Seq is its position.
type Message struct {
	ID             uint                            `gorm:"primaryKey" json:"-"`
	ConversationID string                          `gorm:"size:36;not null;index:idx_message_conversation_seq,priority:1" json:"-"`
	Seq            int                             `gorm:"not null;index:idx_message_conversation_seq,priority:2" json:"seq"`
	Role           Role                            `gorm:"size:16;not null" json:"role"`
	Content        string                          `gorm:"type:text;not null" json:"content"`
	Timestamp      time.Time                       `gorm:"not null" json:"timestamp"`
	Attachments    datatypes.JSONSlice[Attachment] `json:"attachments,omitempty"`
}

func NewSystemMessage(content string, now time.Time) Message {
	return Message{Role: RoleSystem, Content: content, Timestamp: now}
}

func NewUserMessage(content string, attachments []Attachment, now time.Time) Message {
	msg := Message{Role: RoleUser, Content: content, Timestamp: now}
	if len(attachments) > 0 {
		msg.Attachments = datatypes.JSONSlice[Attachment](attachments)
	}
	return msg
}

func NewAssistantMessage(content string, now time.Time) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: now}
}

func (m Message) Validate() error {
	if _, err := ParseRole(string(m.Role)); err != nil {
		return err
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	if len(m.Attachments) > 0 && m.Role != RoleUser {
		return ErrUnexpectedAttachments
	}
	return nil
}

// DecodeMessages parses a JSON array of messages and validates each one.
func DecodeMessages(data []byte) ([]Message, error) {
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("decode messages failed: %w", err)
	}
	for i, msg := range messages {
		if err := msg.Validate(); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}
	return messages, nil
}
