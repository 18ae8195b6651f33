package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Assistant ")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, role)

	_, err = ParseRole("tool")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestDecodeMessagesValidatesAtBoundary(t *testing.T) {
	msgs, err := DecodeMessages([]byte(`[
		{"role":"system","content":"Eres el asistente"},
		{"role":"user","content":"hola","attachments":[{"fileName":"a.pdf","fileType":"application/pdf","fileStorageKey":"k"}]}
	]`))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a.pdf", msgs[1].Attachments[0].FileName)

	_, err = DecodeMessages([]byte(`[{"role":"bot","content":"x"}]`))
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = DecodeMessages([]byte(`[{"role":"assistant","content":"x","attachments":[{"fileName":"a"}]}]`))
	assert.ErrorIs(t, err, ErrUnexpectedAttachments)

	_, err = DecodeMessages([]byte(`[{"role":"user","content":"   "}]`))
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestMessageJSONShape(t *testing.T) {
	raw, err := json.Marshal(NewAssistantMessage("hola", t0))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "attachments")
	assert.Contains(t, string(raw), `"role":"assistant"`)
}

func TestConversationAppendKeepsOrderAndRefreshesUpdatedAt(t *testing.T) {
	conv := NewConversation(7, t0)
	require.NotEmpty(t, conv.ID)
	assert.Equal(t, DefaultConversationTitle, conv.Title)

	later := t0.Add(time.Minute)
	err := conv.Append(later,
		NewUserMessage("¿Qué biosurfactante puedo usar en fórmula lavaloza con pH neutro?", nil, later),
		NewAssistantMessage("Usa cocamidopropil betaína...", later),
	)
	require.NoError(t, err)

	require.Len(t, conv.Messages, 2)
	assert.Equal(t, RoleUser, conv.Messages[0].Role)
	assert.Equal(t, RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, 0, conv.Messages[0].Seq)
	assert.Equal(t, 1, conv.Messages[1].Seq)
	assert.Equal(t, conv.ID, conv.Messages[1].ConversationID)
	assert.Equal(t, later, conv.UpdatedAt)
	assert.Equal(t, "¿Qué biosurfactante puedo usar en fórmula…", conv.Title)
}

func TestConversationAppendRejectsInvalidWithoutMutation(t *testing.T) {
	conv := NewConversation(1, t0)

	err := conv.Append(t0.Add(time.Second), NewUserMessage("ok", nil, t0), Message{Role: "bot", Content: "x"})
	assert.ErrorIs(t, err, ErrUnknownRole)
	assert.Empty(t, conv.Messages)
	assert.Equal(t, t0, conv.UpdatedAt)
}

func TestConversationUpdatedAtNeverBeforeCreatedAt(t *testing.T) {
	conv := NewConversation(1, t0)
	require.NoError(t, conv.Append(t0.Add(-time.Hour), NewUserMessage("hola", nil, t0)))

	assert.Equal(t, t0, conv.UpdatedAt)
}

func TestRenamePinsTitle(t *testing.T) {
	conv := NewConversation(1, t0)
	conv.Rename("  Fórmulas  ", t0.Add(time.Second))
	require.NoError(t, conv.Append(t0.Add(2*time.Second), NewUserMessage("otra cosa", nil, t0)))

	assert.Equal(t, "Fórmulas", conv.Title)
	assert.True(t, conv.TitleEdited)
}

func TestClampTitle(t *testing.T) {
	assert.Equal(t, "Fórmulas", ClampTitle("Fórmulas"))
	long := strings.Repeat("ñ", MaxTitleRunes+10)
	assert.Equal(t, strings.Repeat("ñ", MaxTitleRunes), ClampTitle(long))

	conv := NewConversation(1, t0)
	conv.Rename(long, t0)
	assert.Equal(t, []rune(long)[:MaxTitleRunes], []rune(conv.Title))
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, DefaultConversationTitle, DeriveTitle("   "))
	assert.Equal(t, "pH neutro", DeriveTitle(" pH   neutro "))
	assert.Equal(t, "uno dos tres cuatro cinco seis…", DeriveTitle("uno dos tres cuatro cinco seis siete"))

	long := DeriveTitle(strings.Repeat("x", 80))
	assert.Equal(t, strings.Repeat("x", 60)+"…", long)
}
