package app

import (
	"context"

	"github.com/google/uuid"

	"buscador-gpt/internal/model"
	"buscador-gpt/internal/platform/logger"
	"buscador-gpt/internal/repository"
)

// ConversationStore persists whole conversations. Get returns nil, nil when
// the conversation does not exist or belongs to another user. SaveAll stores
// all conversations or none, giving a fresh id to any conversation whose id
// belongs to another user.
type ConversationStore interface {
	Save(ctx context.Context, conv *model.Conversation) error
	SaveAll(ctx context.Context, convs []model.Conversation) error
	Get(ctx context.Context, userID uint, id string) (*model.Conversation, error)
	List(ctx context.Context, userID uint) ([]model.Conversation, error)
	ListWithMessages(ctx context.Context, userID uint) ([]model.Conversation, error)
	Delete(ctx context.Context, userID uint, id string) error
}

type ConversationCache interface {
	Get(ctx context.Context, userID uint, id string) (*model.Conversation, bool, error)
	Set(ctx context.Context, conv *model.Conversation) error
	Invalidate(ctx context.Context, userID uint, id string) error
	IsDirty(ctx context.Context, userID uint, id string) (bool, error)
}

// CachedConversationStore reads through the cache and invalidates it on
// every write. Cache failures only degrade to database reads.
type CachedConversationStore struct {
	repo  *repository.ConversationRepository
	cache ConversationCache
	log   *logger.Logger
}

func NewCachedConversationStore(repo *repository.ConversationRepository, cache ConversationCache, log *logger.Logger) *CachedConversationStore {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedConversationStore{repo: repo, cache: cache, log: log}
}

func (s *CachedConversationStore) Save(ctx context.Context, conv *model.Conversation) error {
	s.invalidate(ctx, conv.UserID, conv.ID)
	return s.repo.Save(ctx, conv)
}

func (s *CachedConversationStore) SaveAll(ctx context.Context, convs []model.Conversation) error {
	for i := range convs {
		s.invalidate(ctx, convs[i].UserID, convs[i].ID)
	}
	return s.repo.SaveAll(ctx, convs, uuid.NewString)
}

func (s *CachedConversationStore) Get(ctx context.Context, userID uint, id string) (*model.Conversation, error) {
	if s.cache != nil {
		dirty, err := s.cache.IsDirty(ctx, userID, id)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.cache.Get(ctx, userID, id); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	conv, err := s.repo.GetByIDAndUserID(ctx, id, userID)
	if err != nil || conv == nil {
		return conv, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, conv); err != nil {
			s.log.Warn("cache conversation failed", "conversation_id", id, "error", err)
		}
	}
	return conv, nil
}

func (s *CachedConversationStore) List(ctx context.Context, userID uint) ([]model.Conversation, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *CachedConversationStore) ListWithMessages(ctx context.Context, userID uint) ([]model.Conversation, error) {
	return s.repo.ListWithMessagesByUserID(ctx, userID)
}

func (s *CachedConversationStore) Delete(ctx context.Context, userID uint, id string) error {
	s.invalidate(ctx, userID, id)
	return s.repo.DeleteByIDAndUserID(ctx, id, userID)
}

func (s *CachedConversationStore) invalidate(ctx context.Context, userID uint, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID, id); err != nil {
		s.log.Warn("invalidate conversation cache failed", "conversation_id", id, "error", err)
	}
}
