package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"buscador-gpt/internal/model"
	"buscador-gpt/internal/platform/sqlite"
	"buscador-gpt/internal/repository"
)

var clock = time.Date(2025, 7, 28, 9, 5, 0, 0, time.UTC)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// memoryStore copies conversations in and out, like a database would.
type memoryStore struct {
	mu    sync.Mutex
	convs map[string]model.Conversation
	saves int
	newID func() string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{convs: make(map[string]model.Conversation)}
}

func clone(conv model.Conversation) model.Conversation {
	conv.Messages = append([]model.Message(nil), conv.Messages...)
	return conv
}

func (m *memoryStore) Save(_ context.Context, conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.convs[conv.ID]; ok && existing.UserID != conv.UserID {
		return repository.ErrConversationOwner
	}
	m.convs[conv.ID] = clone(*conv)
	m.saves++
	return nil
}

// SaveAll stages every conversation before storing any of them.
func (m *memoryStore) SaveAll(_ context.Context, convs []model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	newID := m.newID
	if newID == nil {
		newID = uuid.NewString
	}
	staged := make(map[string]model.Conversation, len(convs))
	for i := range convs {
		conv := &convs[i]
		if existing, ok := m.convs[conv.ID]; ok && existing.UserID != conv.UserID {
			conv.ID = newID()
			if existing, ok := m.convs[conv.ID]; ok && existing.UserID != conv.UserID {
				return repository.ErrConversationOwner
			}
		}
		staged[conv.ID] = clone(*conv)
	}
	for id, conv := range staged {
		m.convs[id] = conv
		m.saves++
	}
	return nil
}

func (m *memoryStore) Get(_ context.Context, userID uint, id string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.convs[id]
	if !ok || conv.UserID != userID {
		return nil, nil
	}
	c := clone(conv)
	return &c, nil
}

func (m *memoryStore) List(ctx context.Context, userID uint) ([]model.Conversation, error) {
	convs, _ := m.ListWithMessages(ctx, userID)
	for i := range convs {
		convs[i].Messages = nil
	}
	return convs, nil
}

func (m *memoryStore) ListWithMessages(_ context.Context, userID uint) ([]model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Conversation
	for _, conv := range m.convs {
		if conv.UserID == userID {
			out = append(out, clone(conv))
		}
	}
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, userID uint, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv, ok := m.convs[id]; ok && conv.UserID == userID {
		delete(m.convs, id)
	}
	return nil
}

type stubSender struct {
	reply   string
	err     error
	calls   int
	history []model.Message
	hint    string
}

func (s *stubSender) Send(_ context.Context, history []model.Message, hint string) (string, error) {
	s.calls++
	s.history = append([]model.Message(nil), history...)
	s.hint = hint
	return s.reply, s.err
}

type recordingActivity struct {
	published []model.SearchActivity
}

func (r *recordingActivity) PublishActivity(_ context.Context, a model.SearchActivity) error {
	r.published = append(r.published, a)
	return nil
}

type staticAssistants map[string]*model.Assistant

func (s staticAssistants) GetByIDAndUserID(_ context.Context, id string, userID uint) (*model.Assistant, error) {
	a, ok := s[id]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	return a, nil
}
