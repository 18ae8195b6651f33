package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"buscador-gpt/internal/app"
	"buscador-gpt/internal/export"
	"buscador-gpt/internal/transport/http/response"
)

const maxImportBytes = 20 << 20

type ConversationHandler struct {
	conversations *app.ConversationService
}

type RenameConversationRequest struct {
	Title string `json:"title" binding:"required,max=256"`
}

func NewConversationHandler(conversations *app.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	convs, err := h.conversations.List(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err, "list conversations failed")
		return
	}
	response.OK(c, convs)
}

func (h *ConversationHandler) Get(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	conv, err := h.conversations.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err, "get conversation failed")
		return
	}
	response.OK(c, conv)
}

func (h *ConversationHandler) Rename(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	var req RenameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	conv, err := h.conversations.Rename(c.Request.Context(), userID, c.Param("id"), req.Title)
	if err != nil {
		h.writeError(c, err, "rename conversation failed")
		return
	}
	response.OK(c, conv)
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	if err := h.conversations.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeError(c, err, "delete conversation failed")
		return
	}
	response.OK(c, gin.H{"id": c.Param("id")})
}

func (h *ConversationHandler) Export(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatText)))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}
	file, err := h.conversations.Export(c.Request.Context(), userID, c.Param("id"), format)
	if err != nil {
		h.writeError(c, err, "export conversation failed")
		return
	}
	writeAttachment(c, file)
}

func (h *ConversationHandler) ExportAll(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	file, err := h.conversations.ExportAll(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err, "export conversations failed")
		return
	}
	writeAttachment(c, file)
}

// Import takes the archive either as the raw request body or as a
// multipart "file" field.
func (h *ConversationHandler) Import(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var body io.Reader = c.Request.Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed")
			return
		}
		defer f.Close()
		body = f
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxImportBytes))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read request body failed")
		return
	}

	n, err := h.conversations.Import(c.Request.Context(), userID, raw)
	if err != nil {
		h.writeError(c, err, "import conversations failed")
		return
	}
	response.OK(c, gin.H{"imported": n})
}

func (h *ConversationHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, export.ErrInvalidArchive), errors.Is(err, export.ErrUnknownFormat):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrConversationNotFound):
		response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func writeAttachment(c *gin.Context, file *app.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
