package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"buscador-gpt/internal/ai"
	"buscador-gpt/internal/app"
	"buscador-gpt/internal/model"
	"buscador-gpt/internal/prompt"
	"buscador-gpt/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type SendMessageRequest struct {
	ConversationID string             `json:"conversation_id" binding:"max=36"`
	Content        string             `json:"content" binding:"required"`
	Mode           string             `json:"mode"`
	Target         string             `json:"target"`
	AssistantID    string             `json:"assistant_id" binding:"max=36"`
	Model          string             `json:"model" binding:"max=64"`
	Attachments    []model.Attachment `json:"attachments"`
}

type OptimizeRequest struct {
	Text   string `json:"text" binding:"required"`
	Target string `json:"target"`
	Mode   string `json:"mode"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	mode, err := prompt.ParseMode(req.Mode)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	result, err := h.chatService.Send(c.Request.Context(), app.SendInput{
		UserID:         userID,
		Email:          getEmailFromContext(c),
		ConversationID: req.ConversationID,
		Content:        req.Content,
		Mode:           mode,
		Target:         parseTarget(req.Target),
		AssistantID:    req.AssistantID,
		Model:          req.Model,
		Attachments:    req.Attachments,
		ClientIP:       c.ClientIP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, model.ErrEmptyContent), errors.Is(err, model.ErrUnexpectedAttachments):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrConversationNotFound):
			response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, err.Error())
		case errors.Is(err, app.ErrAssistantNotFound):
			response.Error(c, http.StatusNotFound, response.CodeAssistantNotFound, err.Error())
		default:
			writeDispatchError(c, err, "send message failed")
		}
		return
	}

	response.OK(c, result)
}

// Classify previews the tier AUTO mode would pick.
func (h *ChatHandler) Classify(c *gin.Context) {
	text := c.Query("text")
	if strings.TrimSpace(text) == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "text is required")
		return
	}
	tier := h.chatService.Classify(text)
	response.OK(c, gin.H{"tier": tier, "mode": tier.Mode()})
}

func (h *ChatHandler) Optimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	mode, err := prompt.ParseMode(req.Mode)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}
	if mode == prompt.ModeAuto {
		mode = h.chatService.Classify(req.Text).Mode()
	}
	response.OK(c, gin.H{
		"mode":   mode,
		"prompt": h.chatService.Optimize(req.Text, parseTarget(req.Target), mode),
	})
}

func parseTarget(raw string) prompt.Target {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return prompt.ParseTarget(raw)
}

// writeDispatchError maps chat endpoint failures; anything else is a 500.
func writeDispatchError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ai.ErrTimeout):
		response.Error(c, http.StatusGatewayTimeout, response.CodeChatTimeout, err.Error())
	case errors.Is(err, ai.ErrTransport):
		response.Error(c, http.StatusBadGateway, response.CodeChatUnreachable, err.Error())
	case errors.Is(err, ai.ErrProtocol):
		response.Error(c, http.StatusBadGateway, response.CodeChatProtocol, err.Error())
	case errors.Is(err, ai.ErrConfiguration):
		response.Error(c, http.StatusServiceUnavailable, response.CodeChatUnavailable, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
