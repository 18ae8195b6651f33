package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buscador-gpt/internal/app"
	"buscador-gpt/internal/events"
	"buscador-gpt/internal/model"
	"buscador-gpt/internal/repository"
	"buscador-gpt/internal/transport/http/middleware"
	"buscador-gpt/internal/transport/http/response"
	"buscador-gpt/internal/upload"
)

func newAssistantRouter(t *testing.T, bus *events.Bus) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uploads := upload.NewService(upload.NewPolicy(nil, 1024), upload.NewMockPresigner(), nil)
	assistants := app.NewAssistantService(repository.NewAssistantRepository(newTestDB(t)), uploads, bus, nil)
	h := NewAssistantHandler(assistants, uploads.Policy().MaxFileSize)
	uh := NewUploadHandler(uploads, bus)

	router := gin.New()
	g := router.Group("/api/v1", middleware.AuthJWT(testSecret))
	g.GET("/assistants", h.List)
	g.POST("/assistants", h.Create)
	g.POST("/assistants/import", h.Import)
	g.POST("/assistants/import-url", h.ImportURL)
	g.GET("/assistants/:id", h.Get)
	g.GET("/assistants/:id/export", h.Export)
	g.POST("/assistants/:id/files", h.AddFile)
	g.POST("/uploads/presign", uh.Presign)
	return &testEnv{router: router, bus: bus}
}

func TestAssistantLifecycle(t *testing.T) {
	env := newAssistantRouter(t, nil)
	tok := token(t, 1, false)

	rec := env.do(t, http.MethodGet, "/api/v1/assistants", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(decode(t, rec).Data))

	rec = env.do(t, http.MethodPost, "/api/v1/assistants", `{"name":"Formulador"}`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeInvalidAssistant, decode(t, rec).Code)

	rec = env.do(t, http.MethodPost, "/api/v1/assistants", `{"name":"Formulador","instructions":"Responde como químico."}`, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created model.Assistant
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))
	assert.Equal(t, model.DefaultAssistantIcon, created.Icon)

	rec = env.do(t, http.MethodGet, "/api/v1/assistants/"+created.ID, "", token(t, 2, false))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/assistants/"+created.ID+"/export", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "gpt_"+created.ID+".json")

	rec = env.do(t, http.MethodPost, "/api/v1/assistants/import", rec.Body.String(), token(t, 2, false))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var imported model.Assistant
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &imported))
	assert.Equal(t, "Formulador", imported.Name)
	assert.NotEqual(t, created.ID, imported.ID)
}

func TestImportURLDraft(t *testing.T) {
	env := newAssistantRouter(t, nil)
	tok := token(t, 1, false)

	rec := env.do(t, http.MethodPost, "/api/v1/assistants/import-url", `{"url":"https://chatgpt.com/g/g-abc123-formulador-quimico"}`, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	var draft app.AssistantInput
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &draft))
	assert.Equal(t, "FORMULADOR QUIMICO", draft.Name)

	rec = env.do(t, http.MethodPost, "/api/v1/assistants/import-url", `{"url":"https://example.com/x"}`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddTrainingFileMultipart(t *testing.T) {
	env := newAssistantRouter(t, nil)
	tok := token(t, 1, false)

	rec := env.do(t, http.MethodPost, "/api/v1/assistants", `{"name":"Formulador","instructions":"Responde."}`, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	var created model.Assistant
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))

	send := func(name, fileType string, data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("file_type", fileType))
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/assistants/"+created.ID+"/files", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+tok)
		out := httptest.NewRecorder()
		env.router.ServeHTTP(out, req)
		return out
	}

	rec = send("ficha.txt", "text/plain", []byte("pH 7"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var file model.TrainingFile
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &file))
	assert.Equal(t, "pH 7", file.ProcessedContent)

	rec = send("big.txt", "text/plain", bytes.Repeat([]byte("a"), 2048))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeFileTooLarge, decode(t, rec).Code)

	rec = send("setup.exe", "application/x-msdownload", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeUploadRejected, decode(t, rec).Code)
}

func TestPresignPublishesEvent(t *testing.T) {
	bus := events.NewBus(4)
	defer bus.Close()
	sub := bus.Subscribe(1)
	env := newAssistantRouter(t, bus)
	tok := token(t, 1, false)

	rec := env.do(t, http.MethodPost, "/api/v1/uploads/presign", `{"fileName":"ficha.pdf","fileType":"application/pdf","fileSize":100}`, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ticket upload.Ticket
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &ticket))
	assert.NotEmpty(t, ticket.FileKey)

	ev := <-sub.Events()
	assert.Equal(t, events.UploadPresigned, ev.Kind)
	assert.Equal(t, "ficha.pdf", ev.Message)

	rec = env.do(t, http.MethodPost, "/api/v1/uploads/presign", `{"fileName":"ficha.pdf","fileType":"application/pdf"}`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeUploadRejected, decode(t, rec).Code)
}
