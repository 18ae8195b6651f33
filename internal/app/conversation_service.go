package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"buscador-gpt/internal/events"
	"buscador-gpt/internal/export"
	"buscador-gpt/internal/model"
)

type ConversationService struct {
	store ConversationStore
	bus   EventPublisher
	now   func() time.Time
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

func NewConversationService(store ConversationStore, bus EventPublisher) *ConversationService {
	return &ConversationService{store: store, bus: bus, now: time.Now}
}

func (s *ConversationService) List(ctx context.Context, userID uint) ([]model.Conversation, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	convs, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	return convs, nil
}

func (s *ConversationService) Get(ctx context.Context, userID uint, id string) (*model.Conversation, error) {
	if userID == 0 || strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	conv, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

func (s *ConversationService) Rename(ctx context.Context, userID uint, id, title string) (*model.Conversation, error) {
	conv, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	conv.Rename(title, s.now())
	if err := s.store.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation failed: %w", err)
	}
	return conv, nil
}

func (s *ConversationService) Delete(ctx context.Context, userID uint, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	if s.bus != nil {
		s.bus.Publish(events.Event{
			Kind:   events.ConversationDeleted,
			UserID: userID,
			Title:  "Conversación eliminada",
			Data:   map[string]string{"conversation_id": id},
		})
	}
	return nil
}

func (s *ConversationService) Export(ctx context.Context, userID uint, id string, format export.Format) (*ExportFile, error) {
	conv, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	body, err := export.Conversation(conv, format)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		Filename:    export.Filename(conv, format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// ExportAll renders every conversation of the user as one JSON archive.
func (s *ConversationService) ExportAll(ctx context.Context, userID uint) (*ExportFile, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	convs, err := s.store.ListWithMessages(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	body, err := export.MarshalArchive(convs, now)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("buscador_historial_%s.json", now.Format("20060102")),
		ContentType: export.FormatJSON.ContentType(),
		Body:        body,
	}, nil
}

// Import stores every conversation of the archive under userID, overwriting
// conversations with the same id. Ids owned by another user get a fresh id.
// The import is all or nothing: on error no conversation was stored.
func (s *ConversationService) Import(ctx context.Context, userID uint, data []byte) (int, error) {
	if userID == 0 {
		return 0, ErrInvalidInput
	}
	convs, err := export.ParseArchive(data, s.now())
	if err != nil {
		return 0, err
	}
	for i := range convs {
		convs[i].UserID = userID
	}
	if err := s.store.SaveAll(ctx, convs); err != nil {
		return 0, fmt.Errorf("import conversations failed: %w", err)
	}
	return len(convs), nil
}
