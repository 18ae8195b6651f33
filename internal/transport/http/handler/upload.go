package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"buscador-gpt/internal/app"
	"buscador-gpt/internal/events"
	"buscador-gpt/internal/transport/http/response"
	"buscador-gpt/internal/upload"
)

type UploadHandler struct {
	uploads *upload.Service
	bus     app.EventPublisher
}

func NewUploadHandler(uploads *upload.Service, bus app.EventPublisher) *UploadHandler {
	return &UploadHandler{uploads: uploads, bus: bus}
}

// Presign returns a signed PUT URL; the browser uploads directly.
func (h *UploadHandler) Presign(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	var req upload.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if strings.TrimSpace(req.UserEmail) == "" {
		req.UserEmail = getEmailFromContext(c)
	}

	ticket, err := h.uploads.Presign(c.Request.Context(), req)
	if err != nil {
		if isUploadRejection(err) {
			writeUploadRejection(c, err)
			return
		}
		response.Error(c, http.StatusBadGateway, response.CodeInternalServer, "presign upload failed")
		return
	}

	if h.bus != nil {
		h.bus.Publish(events.Event{
			Kind:    events.UploadPresigned,
			UserID:  userID,
			Title:   "Archivo listo para subir",
			Message: req.FileName,
			Data:    gin.H{"fileKey": ticket.FileKey},
		})
	}
	response.OK(c, ticket)
}

func isUploadRejection(err error) bool {
	return errors.Is(err, upload.ErrMissingFields) ||
		errors.Is(err, upload.ErrTypeNotAllowed) ||
		errors.Is(err, upload.ErrFileTooLarge) ||
		errors.Is(err, upload.ErrPresignRejected)
}

func writeUploadRejection(c *gin.Context, err error) {
	if errors.Is(err, upload.ErrFileTooLarge) {
		response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, err.Error())
		return
	}
	response.Error(c, http.StatusBadRequest, response.CodeUploadRejected, err.Error())
}
