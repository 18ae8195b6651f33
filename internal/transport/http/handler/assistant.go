package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"buscador-gpt/internal/app"
	"buscador-gpt/internal/transport/http/response"
	"buscador-gpt/internal/upload"
)

type AssistantHandler struct {
	assistants  *app.AssistantService
	maxFileSize int64
}

type ImportURLRequest struct {
	URL string `json:"url" binding:"required,max=512"`
}

func NewAssistantHandler(assistants *app.AssistantService, maxFileSize int64) *AssistantHandler {
	if maxFileSize <= 0 {
		maxFileSize = upload.DefaultMaxFileSize
	}
	return &AssistantHandler{assistants: assistants, maxFileSize: maxFileSize}
}

func (h *AssistantHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	list, err := h.assistants.List(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err, "list assistants failed")
		return
	}
	response.OK(c, list)
}

func (h *AssistantHandler) Get(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	assistant, err := h.assistants.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err, "get assistant failed")
		return
	}
	response.OK(c, assistant)
}

func (h *AssistantHandler) Create(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	var req app.AssistantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	assistant, err := h.assistants.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.writeError(c, err, "create assistant failed")
		return
	}
	response.OK(c, assistant)
}

func (h *AssistantHandler) Update(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	var req app.AssistantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	assistant, err := h.assistants.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		h.writeError(c, err, "update assistant failed")
		return
	}
	response.OK(c, assistant)
}

func (h *AssistantHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	if err := h.assistants.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeError(c, err, "delete assistant failed")
		return
	}
	response.OK(c, gin.H{"id": c.Param("id")})
}

// Import takes the shared JSON form of an assistant as the request body.
func (h *AssistantHandler) Import(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read request body failed")
		return
	}
	assistant, err := h.assistants.ImportJSON(c.Request.Context(), userID, raw)
	if err != nil {
		h.writeError(c, err, "import assistant failed")
		return
	}
	response.OK(c, assistant)
}

// ImportURL only drafts the assistant; the client completes the instructions
// and creates it.
func (h *AssistantHandler) ImportURL(c *gin.Context) {
	var req ImportURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	draft, err := app.ParseShareURL(req.URL)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}
	response.OK(c, draft)
}

func (h *AssistantHandler) Export(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	raw, err := h.assistants.ExportJSON(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err, "export assistant failed")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "gpt_"+c.Param("id")+".json"))
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// AddFile stores a multipart "file" as training material. The form field
// "file_type" overrides the part's Content-Type.
func (h *AssistantHandler) AddFile(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file is required")
		return
	}
	if fh.Size > h.maxFileSize {
		response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, upload.ErrFileTooLarge.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxFileSize+1))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed")
		return
	}

	fileType := strings.TrimSpace(c.PostForm("file_type"))
	if fileType == "" {
		fileType = fh.Header.Get("Content-Type")
	}
	file, err := h.assistants.AddTrainingFile(c.Request.Context(), app.TrainingFileInput{
		UserID:      userID,
		Email:       getEmailFromContext(c),
		AssistantID: c.Param("id"),
		FileName:    fh.Filename,
		FileType:    fileType,
		Data:        data,
	})
	if err != nil {
		h.writeError(c, err, "add training file failed")
		return
	}
	response.OK(c, file)
}

func (h *AssistantHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidAssistant):
		response.Error(c, http.StatusBadRequest, response.CodeInvalidAssistant, err.Error())
	case errors.Is(err, app.ErrAssistantNotFound):
		response.Error(c, http.StatusNotFound, response.CodeAssistantNotFound, err.Error())
	case isUploadRejection(err):
		writeUploadRejection(c, err)
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
