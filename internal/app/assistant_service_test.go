package app

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buscador-gpt/internal/events"
	"buscador-gpt/internal/model"
	"buscador-gpt/internal/repository"
	"buscador-gpt/internal/upload"
)

func newAssistantService(t *testing.T, bus EventPublisher) *AssistantService {
	t.Helper()
	uploads := upload.NewService(upload.DefaultPolicy(), upload.NewMockPresigner(), nil)
	return NewAssistantService(repository.NewAssistantRepository(newTestDB(t)), uploads, bus, nil)
}

func TestAssistantCreateRequiresNameAndInstructions(t *testing.T) {
	svc := newAssistantService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, AssistantInput{Name: "Formulador"})
	assert.ErrorIs(t, err, ErrInvalidAssistant)

	a, err := svc.Create(ctx, 1, AssistantInput{Name: " Formulador ", Instructions: "Responde como químico."})
	require.NoError(t, err)
	assert.Equal(t, "Formulador", a.Name)
	assert.Equal(t, model.DefaultAssistantIcon, a.Icon)

	updated, err := svc.Update(ctx, 1, a.ID, AssistantInput{Name: "Formulador Pro", Instructions: "Responde breve.", Icon: "⚗️"})
	require.NoError(t, err)
	assert.Equal(t, "⚗️", updated.Icon)

	_, err = svc.Update(ctx, 2, a.ID, AssistantInput{Name: "x", Instructions: "y"})
	assert.ErrorIs(t, err, ErrAssistantNotFound)

	require.NoError(t, svc.Delete(ctx, 1, a.ID))
	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestImportAndExportJSON(t *testing.T) {
	bus := events.NewBus(2)
	sub := bus.Subscribe(1)
	defer sub.Unsubscribe()
	svc := newAssistantService(t, bus)
	ctx := context.Background()

	a, err := svc.ImportJSON(ctx, 1, []byte(`{"name":"Analista","description":"Costos","instructions":"Analiza costos."}`))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultAssistantIcon, a.Icon)

	ev := <-sub.Events()
	assert.Equal(t, events.AssistantImported, ev.Kind)
	assert.Equal(t, "Analista se ha añadido correctamente", ev.Message)

	raw, err := svc.ExportJSON(ctx, 1, a.ID)
	require.NoError(t, err)
	var shared AssistantInput
	require.NoError(t, json.Unmarshal(raw, &shared))
	assert.Equal(t, AssistantInput{Name: "Analista", Description: "Costos", Instructions: "Analiza costos.", Icon: model.DefaultAssistantIcon}, shared)

	_, err = svc.ImportJSON(ctx, 1, []byte(`{"name":"Sin instrucciones"}`))
	assert.ErrorIs(t, err, ErrInvalidAssistant)
	_, err = svc.ImportJSON(ctx, 1, []byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidAssistant)
}

func TestParseShareURL(t *testing.T) {
	draft, err := ParseShareURL("https://chatgpt.com/g/g-abc123-formulador-quimico")
	require.NoError(t, err)
	assert.Equal(t, "FORMULADOR QUIMICO", draft.Name)
	assert.Equal(t, "GPT importado desde: https://chatgpt.com/g/g-abc123-formulador-quimico", draft.Description)
	assert.Equal(t, "🔗", draft.Icon)
	assert.Empty(t, draft.Instructions)

	bare, err := ParseShareURL("https://chatgpt.com/g/g-abc123/")
	require.NoError(t, err)
	assert.Equal(t, "GPT Importado", bare.Name)

	_, err = ParseShareURL("https://example.com/g/g-abc123-x")
	assert.ErrorIs(t, err, ErrInvalidShareURL)
}

func TestAddTrainingFile(t *testing.T) {
	svc := newAssistantService(t, nil)
	ctx := context.Background()
	a, err := svc.Create(ctx, 1, AssistantInput{Name: "Formulador", Instructions: "Responde como químico."})
	require.NoError(t, err)

	file, err := svc.AddTrainingFile(ctx, TrainingFileInput{
		UserID: 1, Email: "ana@iespecialidades.com", AssistantID: a.ID,
		FileName: "ficha.txt", FileType: "text/plain; charset=utf-8", Data: []byte("pH 7, viscosidad 1200 cP"),
	})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", file.FileType)
	assert.Equal(t, "pH 7, viscosidad 1200 cP", file.ProcessedContent)
	assert.True(t, strings.HasPrefix(file.FileKey, "mock/"))

	image, err := svc.AddTrainingFile(ctx, TrainingFileInput{
		UserID: 1, AssistantID: a.ID, FileName: "logo.png", FileType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'},
	})
	require.NoError(t, err)
	assert.Equal(t, "Image file: logo.png (image/png). Content analysis would require vision AI processing.", image.ProcessedContent)

	_, err = svc.AddTrainingFile(ctx, TrainingFileInput{
		UserID: 1, AssistantID: a.ID, FileName: "setup.exe", FileType: "application/x-msdownload", Data: []byte("MZ"),
	})
	assert.ErrorIs(t, err, upload.ErrTypeNotAllowed)

	got, err := svc.Get(ctx, 1, a.ID)
	require.NoError(t, err)
	assert.Len(t, got.TrainingFiles, 2)
}
