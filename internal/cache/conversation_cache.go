package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"buscador-gpt/internal/model"
)

// ConversationCache keeps recently read conversations in redis. A short-lived
// dirty marker stops readers from re-filling the cache while a save is in flight.
type ConversationCache struct {
	client         *redisv9.Client
	ttl            time.Duration
	dirtyMarkerTTL time.Duration
}

func NewConversationCache(client *redisv9.Client, ttl, dirtyMarkerTTL time.Duration) *ConversationCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &ConversationCache{
		client:         client,
		ttl:            ttl,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *ConversationCache) Get(ctx context.Context, userID uint, id string) (*model.Conversation, bool, error) {
	raw, err := c.client.Get(ctx, conversationKey(userID, id)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get conversation failed: %w", err)
	}

	var conv model.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached conversation failed: %w", err)
	}
	// Message ownership is not serialized.
	for i := range conv.Messages {
		conv.Messages[i].ConversationID = conv.ID
	}
	return &conv, true, nil
}

// Set is skipped while the conversation is marked dirty.
func (c *ConversationCache) Set(ctx context.Context, conv *model.Conversation) error {
	dirty, err := c.IsDirty(ctx, conv.UserID, conv.ID)
	if err != nil || dirty {
		return err
	}
	payload, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation cache failed: %w", err)
	}
	if err := c.client.Set(ctx, conversationKey(conv.UserID, conv.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set conversation failed: %w", err)
	}
	return nil
}

// Invalidate marks the conversation dirty and drops the cached copy.
func (c *ConversationCache) Invalidate(ctx context.Context, userID uint, id string) error {
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, dirtyKey(userID, id), "1", c.dirtyMarkerTTL)
	pipe.Del(ctx, conversationKey(userID, id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate conversation failed: %w", err)
	}
	return nil
}

func (c *ConversationCache) IsDirty(ctx context.Context, userID uint, id string) (bool, error) {
	exists, err := c.client.Exists(ctx, dirtyKey(userID, id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func conversationKey(userID uint, id string) string {
	return fmt.Sprintf("buscador:conversation:%d:%s", userID, id)
}

func dirtyKey(userID uint, id string) string {
	return fmt.Sprintf("buscador:conversation:dirty:%d:%s", userID, id)
}
