package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"buscador-gpt/internal/events"
	"buscador-gpt/internal/model"
	"buscador-gpt/internal/pkg/pdfextract"
	"buscador-gpt/internal/platform/logger"
	"buscador-gpt/internal/repository"
	"buscador-gpt/internal/upload"
)

var (
	ErrAssistantNotFound = errors.New("assistant not found")
	ErrInvalidAssistant  = errors.New("assistant requires name and instructions")
	ErrInvalidShareURL   = errors.New("not a ChatGPT share link")
)

const (
	sharedAssistantIcon     = "🔗"
	sharedAssistantFallback = "GPT Importado"
	trainingContentRunes    = 20000
)

type AssistantService struct {
	repo    *repository.AssistantRepository
	uploads *upload.Service
	bus     EventPublisher
	log     *logger.Logger
	now     func() time.Time
}

// AssistantInput is also the sharing format of an assistant.
type AssistantInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Instructions string `json:"instructions"`
	Icon         string `json:"icon"`
}

func (in AssistantInput) normalized() (AssistantInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Instructions = strings.TrimSpace(in.Instructions)
	in.Icon = strings.TrimSpace(in.Icon)
	if in.Name == "" || in.Instructions == "" {
		return in, ErrInvalidAssistant
	}
	if in.Icon == "" {
		in.Icon = model.DefaultAssistantIcon
	}
	return in, nil
}

type TrainingFileInput struct {
	UserID      uint
	Email       string
	AssistantID string
	FileName    string
	FileType    string
	Data        []byte
}

func NewAssistantService(repo *repository.AssistantRepository, uploads *upload.Service, bus EventPublisher, log *logger.Logger) *AssistantService {
	if log == nil {
		log = logger.Nop()
	}
	return &AssistantService{repo: repo, uploads: uploads, bus: bus, log: log, now: time.Now}
}

func (s *AssistantService) List(ctx context.Context, userID uint) ([]model.Assistant, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	list, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Assistant{}
	}
	return list, nil
}

func (s *AssistantService) Get(ctx context.Context, userID uint, id string) (*model.Assistant, error) {
	if userID == 0 || strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	assistant, err := s.repo.GetByIDAndUserID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if assistant == nil {
		return nil, ErrAssistantNotFound
	}
	return assistant, nil
}

// GetByIDAndUserID lets the chat service resolve assistants through this service.
func (s *AssistantService) GetByIDAndUserID(ctx context.Context, id string, userID uint) (*model.Assistant, error) {
	return s.repo.GetByIDAndUserID(ctx, id, userID)
}

func (s *AssistantService) Create(ctx context.Context, userID uint, input AssistantInput) (*model.Assistant, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	in, err := input.normalized()
	if err != nil {
		return nil, err
	}
	assistant := model.NewAssistant(userID, in.Name, in.Description, in.Instructions, in.Icon)
	if err := s.repo.Create(ctx, assistant); err != nil {
		return nil, err
	}
	return assistant, nil
}

func (s *AssistantService) Update(ctx context.Context, userID uint, id string, input AssistantInput) (*model.Assistant, error) {
	in, err := input.normalized()
	if err != nil {
		return nil, err
	}
	assistant, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	assistant.Name = in.Name
	assistant.Description = in.Description
	assistant.Instructions = in.Instructions
	assistant.Icon = in.Icon
	assistant.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, assistant); err != nil {
		return nil, err
	}
	return assistant, nil
}

func (s *AssistantService) Delete(ctx context.Context, userID uint, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.DeleteByIDAndUserID(ctx, id, userID)
}

// ImportJSON creates an assistant from its shared JSON form.
func (s *AssistantService) ImportJSON(ctx context.Context, userID uint, raw []byte) (*model.Assistant, error) {
	var input AssistantInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssistant, err)
	}
	assistant, err := s.Create(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	if s.bus != nil {
		s.bus.Publish(events.Event{
			Kind:    events.AssistantImported,
			UserID:  userID,
			Level:   "success",
			Title:   "GPT importado",
			Message: fmt.Sprintf("%s se ha añadido correctamente", assistant.Name),
			Data:    map[string]string{"assistant_id": assistant.ID},
		})
	}
	return assistant, nil
}

func (s *AssistantService) ExportJSON(ctx context.Context, userID uint, id string) ([]byte, error) {
	assistant, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(AssistantInput{
		Name:         assistant.Name,
		Description:  assistant.Description,
		Instructions: assistant.Instructions,
		Icon:         assistant.Icon,
	}, "", "  ")
}

// ParseShareURL turns a chatgpt.com/g/<id>-<slug> link into a draft the user
// completes with instructions. The name is the upper-cased slug.
func ParseShareURL(raw string) (*AssistantInput, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "chatgpt.com/g/") {
		return nil, ErrInvalidShareURL
	}
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		path = u.Path
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	ident := segments[len(segments)-1]

	words := strings.Split(strings.TrimPrefix(ident, "g-"), "-")
	name := sharedAssistantFallback
	if len(words) > 1 {
		if slug := strings.TrimSpace(strings.Join(words[1:], " ")); slug != "" {
			name = strings.ToUpper(slug)
		}
	}
	return &AssistantInput{
		Name:        name,
		Description: "GPT importado desde: " + raw,
		Icon:        sharedAssistantIcon,
	}, nil
}

// AddTrainingFile validates the file with the upload policy, extracts its
// text, stores the bytes and records the file on the assistant.
func (s *AssistantService) AddTrainingFile(ctx context.Context, input TrainingFileInput) (*model.TrainingFile, error) {
	assistant, err := s.Get(ctx, input.UserID, input.AssistantID)
	if err != nil {
		return nil, err
	}
	fileType := upload.MediaType(input.FileType)
	req := upload.Request{
		FileName:  strings.TrimSpace(input.FileName),
		FileType:  fileType,
		FileSize:  int64(len(input.Data)),
		UserEmail: input.Email,
		GPTID:     assistant.ID,
	}
	if err := s.uploads.Policy().Check(req); err != nil {
		return nil, err
	}

	ticket, err := s.uploads.Upload(ctx, req, input.Data)
	if err != nil {
		return nil, err
	}

	file := &model.TrainingFile{
		AssistantID:      assistant.ID,
		FileName:         req.FileName,
		FileType:         fileType,
		FileSize:         req.FileSize,
		FileKey:          ticket.FileKey,
		ProcessedContent: s.processContent(req.FileName, fileType, input.Data),
	}
	if err := s.repo.AddTrainingFile(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *AssistantService) processContent(name, fileType string, data []byte) string {
	switch {
	case fileType == "text/plain":
		text := strings.ToValidUTF8(string(data), "")
		if utf8.RuneCountInString(text) > trainingContentRunes {
			text = string([]rune(text)[:trainingContentRunes])
		}
		return text
	case fileType == "application/pdf":
		text, err := pdfextract.ExtractText(data, trainingContentRunes)
		if err != nil {
			s.log.Warn("extract pdf text failed", "file", name, "error", err)
			return fmt.Sprintf("PDF document: %s. Text could not be extracted.", name)
		}
		if text == "" {
			return fmt.Sprintf("PDF document: %s. No text layer found.", name)
		}
		return text
	case strings.HasPrefix(fileType, "image/"):
		return fmt.Sprintf("Image file: %s (%s). Content analysis would require vision AI processing.", name, fileType)
	case strings.Contains(fileType, "word"):
		return fmt.Sprintf("Word document: %s. Content extraction requires specialized processing.", name)
	default:
		return fmt.Sprintf("File: %s (%s). Content extraction is not supported.", name, fileType)
	}
}
