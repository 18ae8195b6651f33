package export

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buscador-gpt/internal/model"
)

var at = time.Date(2025, 7, 28, 9, 5, 0, 0, time.UTC)

func sample(t *testing.T) *model.Conversation {
	t.Helper()
	conv := model.NewConversation(1, at)
	require.NoError(t, conv.Append(at,
		model.NewSystemMessage("Eres el asistente de Ingtec", at),
		model.NewUserMessage("¿Qué biosurfactante uso?", []model.Attachment{{FileName: "ficha.pdf", FileType: "application/pdf"}}, at),
		model.NewAssistantMessage("Usa **cocamidopropil betaína** <script>alert(1)</script>", at),
	))
	return conv
}

func TestText(t *testing.T) {
	assert.Equal(t,
		"Usuario: ¿Qué biosurfactante uso?\n\nAsistente: Usa **cocamidopropil betaína** <script>alert(1)</script>",
		Text(sample(t)))
}

func TestMarkdownListsAttachments(t *testing.T) {
	md := Markdown(sample(t))

	assert.Contains(t, md, "# ¿Qué biosurfactante uso?")
	assert.Contains(t, md, "**Usuario** · 2025-07-28 09:05:00")
	assert.Contains(t, md, "📎 ficha.pdf (application/pdf)")
	assert.NotContains(t, md, "Eres el asistente")
}

func TestHTMLRendersMarkdownWithoutRawHTML(t *testing.T) {
	out, err := HTML(sample(t))
	require.NoError(t, err)

	page := string(out)
	assert.Contains(t, page, "<title>¿Qué biosurfactante uso?</title>")
	assert.Contains(t, page, "<strong>cocamidopropil betaína</strong>")
	assert.NotContains(t, page, "<script>")
}

func TestConversationJSONAndFilename(t *testing.T) {
	conv := sample(t)
	out, err := Conversation(conv, FormatJSON)
	require.NoError(t, err)

	var decoded model.Conversation
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Len(t, decoded.Messages, 3)
	assert.Equal(t, "Qu_biosurfactante_uso_20250728.json", Filename(conv, FormatJSON))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("Markdown")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	_, err = ParseFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestArchiveRoundTrip(t *testing.T) {
	conv := sample(t)
	raw, err := MarshalArchive([]model.Conversation{*conv}, at)
	require.NoError(t, err)

	convs, err := ParseArchive(raw, at)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, conv.ID, convs[0].ID)
	assert.Equal(t, model.RoleAssistant, convs[0].Messages[2].Role)
}

func TestParseArchiveClampsLongTitle(t *testing.T) {
	long := strings.Repeat("Fórmula ", 40)
	raw := `[{"id":"","title":"` + long + `","messages":[{"role":"user","content":"hola"}]}]`

	convs, err := ParseArchive([]byte(raw), at)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, model.MaxTitleRunes, utf8.RuneCountInString(convs[0].Title))
	assert.True(t, strings.HasPrefix(long, convs[0].Title))
}

func TestParseArchiveRejectsUnknownRole(t *testing.T) {
	_, err := ParseArchive([]byte(`[{"id":"","title":"x","messages":[{"role":"bot","content":"hola"}]}]`), at)
	assert.ErrorIs(t, err, ErrInvalidArchive)
}

func TestParseArchiveLegacyHistory(t *testing.T) {
	convs, err := ParseArchive([]byte(`[
		{"fecha":"2025-07-28","gptUsado":"ChatGPT (mock)","pregunta":"¿pH neutro?","respuesta":"Sí"},
		{"fecha":"28/07/2025","gptUsado":"ChatGPT","pregunta":"   ","respuesta":""}
	]`), at)
	require.NoError(t, err)

	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 2)
	assert.Equal(t, "¿pH neutro?", convs[0].Title)
	assert.Equal(t, time.Date(2025, 7, 28, 0, 0, 0, 0, time.UTC), convs[0].CreatedAt)
}
