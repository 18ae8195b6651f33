package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"buscador-gpt/internal/model"
)

var ErrConversationOwner = errors.New("conversation belongs to another user")

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Save replaces the stored conversation and all of its messages. Last write wins.
func (r *ConversationRepository) Save(ctx context.Context, conv *model.Conversation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveConversation(tx, conv)
	})
}

// SaveAll saves every conversation in one transaction, so either all of them
// are stored or none is. A conversation whose id belongs to another user is
// stored under newID() instead.
func (r *ConversationRepository) SaveAll(ctx context.Context, convs []model.Conversation, newID func() string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range convs {
			conv := &convs[i]
			err := saveConversation(tx, conv)
			if errors.Is(err, ErrConversationOwner) && newID != nil {
				conv.ID = newID()
				err = saveConversation(tx, conv)
			}
			if err != nil {
				return fmt.Errorf("conversation %d: %w", i, err)
			}
		}
		return nil
	})
}

func saveConversation(tx *gorm.DB, conv *model.Conversation) error {
	var owner model.Conversation
	err := tx.Select("user_id").Where("id = ?", conv.ID).Take(&owner).Error
	switch {
	case err == nil && owner.UserID != conv.UserID:
		return ErrConversationOwner
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("check conversation owner failed: %w", err)
	}

	if err := tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(conv).Error; err != nil {
		return fmt.Errorf("save conversation failed: %w", err)
	}
	if err := tx.Where("conversation_id = ?", conv.ID).Delete(&model.Message{}).Error; err != nil {
		return fmt.Errorf("clear conversation messages failed: %w", err)
	}
	if len(conv.Messages) == 0 {
		return nil
	}

	msgs := make([]model.Message, len(conv.Messages))
	for i, msg := range conv.Messages {
		msg.ID = 0
		msg.ConversationID = conv.ID
		msg.Seq = i
		msgs[i] = msg
	}
	if err := tx.Create(&msgs).Error; err != nil {
		return fmt.Errorf("save conversation messages failed: %w", err)
	}
	conv.Messages = msgs
	return nil
}

func (r *ConversationRepository) GetByIDAndUserID(ctx context.Context, id string, userID uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation failed: %w", err)
	}
	return &conv, nil
}

// ListByUserID returns conversations without their messages, newest first.
func (r *ConversationRepository) ListByUserID(ctx context.Context, userID uint) ([]model.Conversation, error) {
	var convs []model.Conversation
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("list conversations failed: %w", err)
	}
	return convs, nil
}

func (r *ConversationRepository) ListWithMessagesByUserID(ctx context.Context, userID uint) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations with messages failed: %w", err)
	}
	return convs, nil
}

func (r *ConversationRepository) DeleteByIDAndUserID(ctx context.Context, id string, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Conversation{})
		if res.Error != nil {
			return fmt.Errorf("delete conversation failed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("delete conversation messages failed: %w", err)
		}
		return nil
	})
}
