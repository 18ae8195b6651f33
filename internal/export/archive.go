package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"buscador-gpt/internal/model"
)

const archiveVersion = 1

var ErrInvalidArchive = errors.New("invalid conversation archive")

type Archive struct {
	Version       int                  `json:"version"`
	ExportedAt    time.Time            `json:"exported_at"`
	Conversations []model.Conversation `json:"conversations"`
}

func MarshalArchive(convs []model.Conversation, now time.Time) ([]byte, error) {
	if convs == nil {
		convs = []model.Conversation{}
	}
	out, err := json.MarshalIndent(Archive{Version: archiveVersion, ExportedAt: now, Conversations: convs}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal archive failed: %w", err)
	}
	return out, nil
}

// legacyEntry is the flat question/answer history kept by older clients.
type legacyEntry struct {
	Fecha     string `json:"fecha"`
	GPTUsado  string `json:"gptUsado"`
	Pregunta  string `json:"pregunta"`
	Respuesta string `json:"respuesta"`
}

// ParseArchive accepts an Archive object, a bare array of conversations, or
// the legacy question/answer array. Every message is validated.
func ParseArchive(data []byte, now time.Time) ([]model.Conversation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrInvalidArchive
	}

	var convs []model.Conversation
	switch trimmed[0] {
	case '{':
		var archive Archive
		if err := json.Unmarshal(trimmed, &archive); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		convs = archive.Conversations
	case '[':
		var probe []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		if len(probe) > 0 && probe[0]["pregunta"] != nil {
			return parseLegacy(trimmed, now)
		}
		if err := json.Unmarshal(trimmed, &convs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
	default:
		return nil, ErrInvalidArchive
	}

	for i := range convs {
		if err := normalize(&convs[i], now); err != nil {
			return nil, fmt.Errorf("%w: conversation %d: %v", ErrInvalidArchive, i, err)
		}
	}
	return convs, nil
}

func normalize(conv *model.Conversation, now time.Time) error {
	if strings.TrimSpace(conv.ID) == "" {
		conv.ID = uuid.NewString()
	} else if _, err := uuid.Parse(conv.ID); err != nil {
		return fmt.Errorf("id %q is not a uuid", conv.ID)
	}
	for i := range conv.Messages {
		if err := conv.Messages[i].Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
		conv.Messages[i].Seq = i
		if conv.Messages[i].Timestamp.IsZero() {
			conv.Messages[i].Timestamp = now
		}
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.Before(conv.CreatedAt) {
		conv.UpdatedAt = conv.CreatedAt
	}
	conv.Title = model.ClampTitle(strings.TrimSpace(conv.Title))
	if conv.Title == "" {
		conv.Title = model.DefaultConversationTitle
		if first, ok := conv.FirstUserMessage(); ok {
			conv.Title = model.DeriveTitle(first.Content)
		}
	}
	return nil
}

func parseLegacy(data []byte, now time.Time) ([]model.Conversation, error) {
	var entries []legacyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	convs := make([]model.Conversation, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Pregunta) == "" {
			continue
		}
		at := parseLegacyDate(e.Fecha, now)
		conv := model.NewConversation(0, at)
		msgs := []model.Message{model.NewUserMessage(e.Pregunta, nil, at)}
		if strings.TrimSpace(e.Respuesta) != "" {
			msgs = append(msgs, model.NewAssistantMessage(e.Respuesta, at))
		}
		if err := conv.Append(at, msgs...); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		convs = append(convs, *conv)
	}
	return convs, nil
}

func parseLegacyDate(raw string, fallback time.Time) time.Time {
	for _, layout := range []string{"2006-01-02", "02/01/2006", time.RFC3339} {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t
		}
	}
	return fallback
}
