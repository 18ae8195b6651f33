package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"buscador-gpt/internal/ai"
	"buscador-gpt/internal/events"
	"buscador-gpt/internal/model"
	"buscador-gpt/internal/platform/logger"
	"buscador-gpt/internal/prompt"
)

var (
	ErrMessageEmpty         = errors.New("message content is empty")
	ErrConversationNotFound = errors.New("conversation not found")
)

const (
	defaultMaxHistory       = 40
	defaultExcerptRunes     = 2000
	defaultTrainingRunes    = 8000
	defaultAssistantUsedTag = "ChatGPT"
)

type ActivityPublisher interface {
	PublishActivity(ctx context.Context, activity model.SearchActivity) error
}

type EventPublisher interface {
	Publish(ev events.Event) int
}

type AssistantLookup interface {
	GetByIDAndUserID(ctx context.Context, id string, userID uint) (*model.Assistant, error)
}

type ChatOptions struct {
	SystemPrompt  string
	Target        prompt.Target
	Classifier    prompt.Classifier
	AssistantUsed string
	// MaxHistory bounds the prior messages forwarded with each send.
	MaxHistory int
	// ExcerptRunes bounds each training file excerpt; TrainingRunes bounds them all.
	ExcerptRunes  int
	TrainingRunes int
}

type ChatService struct {
	store      ConversationStore
	sender     ai.Sender
	assistants AssistantLookup
	activity   ActivityPublisher
	bus        EventPublisher
	optimizer  prompt.Optimizer
	opts       ChatOptions
	log        *logger.Logger
	now        func() time.Time
}

type SendInput struct {
	UserID         uint
	Email          string
	ConversationID string
	Content        string
	Mode           prompt.Mode
	Target         prompt.Target
	AssistantID    string
	Model          string
	Attachments    []model.Attachment
	ClientIP       string
}

type SendResult struct {
	Conversation *model.Conversation `json:"conversation"`
	Reply        model.Message       `json:"reply"`
	Mode         prompt.Mode         `json:"mode"`
	Prompt       string              `json:"prompt"`
}

func NewChatService(
	store ConversationStore,
	sender ai.Sender,
	assistants AssistantLookup,
	activity ActivityPublisher,
	bus EventPublisher,
	opts ChatOptions,
	log *logger.Logger,
) *ChatService {
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = defaultMaxHistory
	}
	if opts.ExcerptRunes <= 0 {
		opts.ExcerptRunes = defaultExcerptRunes
	}
	if opts.TrainingRunes <= 0 {
		opts.TrainingRunes = defaultTrainingRunes
	}
	if opts.Target == "" {
		opts.Target = prompt.TargetChatGPT
	}
	if opts.AssistantUsed == "" {
		opts.AssistantUsed = defaultAssistantUsedTag
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ChatService{
		store:      store,
		sender:     sender,
		assistants: assistants,
		activity:   activity,
		bus:        bus,
		optimizer:  prompt.Optimizer{Classifier: opts.Classifier},
		opts:       opts,
		log:        log,
		now:        time.Now,
	}
}

// Send dispatches the optimized message and, only when a reply arrives,
// appends the raw user message and the reply to the conversation. A failed
// dispatch leaves the stored conversation untouched.
func (s *ChatService) Send(ctx context.Context, input SendInput) (*SendResult, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	sentAt := s.now()
	conv, err := s.loadOrCreate(ctx, input.UserID, input.ConversationID, sentAt)
	if err != nil {
		return nil, err
	}

	system, assistantUsed, err := s.systemPrompt(ctx, input.UserID, input.AssistantID)
	if err != nil {
		return nil, err
	}

	mode := input.Mode
	if mode == "" {
		mode = prompt.ModeAuto
	}
	if mode == prompt.ModeAuto {
		mode = s.optimizer.Classifier.Classify(content).Mode()
	}
	target := input.Target
	if target == "" {
		target = s.opts.Target
	}
	optimized := s.optimizer.Optimize(content, target, mode)

	history := s.buildHistory(conv, system, optimized, sentAt)
	reply, err := s.sender.Send(ctx, history, strings.TrimSpace(input.Model))
	if err != nil {
		s.log.Warn("chat dispatch failed", "user_id", input.UserID, "conversation_id", conv.ID, "error", err)
		s.publish(events.Event{
			Kind:    events.DispatchFailed,
			UserID:  input.UserID,
			Level:   "destructive",
			Title:   "Error",
			Message: err.Error(),
			Data:    map[string]string{"conversation_id": conv.ID},
		})
		return nil, err
	}

	repliedAt := s.now()
	userMsg := model.NewUserMessage(content, input.Attachments, sentAt)
	replyMsg := model.NewAssistantMessage(reply, repliedAt)
	if err := conv.Append(repliedAt, userMsg, replyMsg); err != nil {
		return nil, fmt.Errorf("append reply failed: %w", err)
	}
	if err := s.store.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation failed: %w", err)
	}

	s.publish(events.Event{
		Kind:   events.ConversationSaved,
		UserID: input.UserID,
		Title:  "Conversación guardada",
		Data:   map[string]string{"conversation_id": conv.ID, "title": conv.Title},
	})
	s.recordActivity(ctx, input, conv.ID, assistantUsed, mode, content, reply, repliedAt)

	return &SendResult{
		Conversation: conv,
		Reply:        conv.Messages[len(conv.Messages)-1],
		Mode:         mode,
		Prompt:       optimized,
	}, nil
}

// Classify previews the tier AUTO would pick for text.
func (s *ChatService) Classify(text string) prompt.Tier {
	return s.optimizer.Classifier.Classify(text)
}

// Optimize previews the text that would be dispatched.
func (s *ChatService) Optimize(text string, target prompt.Target, mode prompt.Mode) string {
	if target == "" {
		target = s.opts.Target
	}
	return s.optimizer.Optimize(text, target, mode)
}

func (s *ChatService) loadOrCreate(ctx context.Context, userID uint, id string, now time.Time) (*model.Conversation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.NewConversation(userID, now), nil
	}
	conv, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("load conversation failed: %w", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

func (s *ChatService) systemPrompt(ctx context.Context, userID uint, assistantID string) (string, string, error) {
	assistantID = strings.TrimSpace(assistantID)
	if assistantID == "" || s.assistants == nil {
		return s.opts.SystemPrompt, s.opts.AssistantUsed, nil
	}
	assistant, err := s.assistants.GetByIDAndUserID(ctx, assistantID, userID)
	if err != nil {
		return "", "", fmt.Errorf("load assistant failed: %w", err)
	}
	if assistant == nil {
		return "", "", ErrAssistantNotFound
	}
	return assistantInstructions(assistant, s.opts.ExcerptRunes, s.opts.TrainingRunes), assistant.Name, nil
}

// assistantInstructions appends bounded excerpts of the training files to the
// assistant's instructions.
func assistantInstructions(a *model.Assistant, excerptRunes, totalRunes int) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(a.Instructions))

	budget := totalRunes
	for _, file := range a.TrainingFiles {
		excerpt := strings.TrimSpace(file.ProcessedContent)
		if excerpt == "" || budget <= 0 {
			continue
		}
		limit := excerptRunes
		if limit > budget {
			limit = budget
		}
		if utf8.RuneCountInString(excerpt) > limit {
			excerpt = string([]rune(excerpt)[:limit]) + "…"
		}
		budget -= utf8.RuneCountInString(excerpt)

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Material de referencia (")
		b.WriteString(file.FileName)
		b.WriteString("):\n")
		b.WriteString(excerpt)
	}
	return b.String()
}

// buildHistory is the system message, the most recent prior turns and the
// optimized user message. Stored system messages are not forwarded.
func (s *ChatService) buildHistory(conv *model.Conversation, system, optimized string, now time.Time) []model.Message {
	prior := make([]model.Message, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		if msg.Role != model.RoleSystem {
			prior = append(prior, msg)
		}
	}
	if len(prior) > s.opts.MaxHistory {
		prior = prior[len(prior)-s.opts.MaxHistory:]
	}

	history := make([]model.Message, 0, len(prior)+2)
	if strings.TrimSpace(system) != "" {
		history = append(history, model.NewSystemMessage(system, now))
	}
	history = append(history, prior...)
	history = append(history, model.NewUserMessage(optimized, nil, now))
	return history
}

func (s *ChatService) recordActivity(ctx context.Context, input SendInput, convID, assistantUsed string, mode prompt.Mode, question, answer string, at time.Time) {
	if s.activity == nil {
		return
	}
	err := s.activity.PublishActivity(ctx, model.SearchActivity{
		UserID:         input.UserID,
		Email:          input.Email,
		ConversationID: convID,
		AssistantUsed:  assistantUsed,
		Mode:           string(mode),
		Question:       question,
		Answer:         answer,
		ClientIP:       input.ClientIP,
		CreatedAt:      at,
	})
	if err != nil {
		s.log.Warn("publish search activity failed", "user_id", input.UserID, "error", err)
	}
}

func (s *ChatService) publish(ev events.Event) {
	if s.bus == nil {
		return
	}
	ev.At = s.now()
	s.bus.Publish(ev)
}
