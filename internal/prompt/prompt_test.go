package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLengthBoundary(t *testing.T) {
	assert.Equal(t, TierBasic, Classify(strings.Repeat("a", 400)))
	assert.Equal(t, TierDetailed, Classify(strings.Repeat("a", 401)))
}

func TestClassifyCountsRunes(t *testing.T) {
	// 400 two-byte runes stay BASIC.
	assert.Equal(t, TierBasic, Classify(strings.Repeat("ñ", 400)))
}

func TestClassifyKeywordTriggersRegardlessOfLength(t *testing.T) {
	assert.Equal(t, TierDetailed, Classify("plan"))
	assert.Equal(t, TierDetailed, Classify("Necesito un ANÁLISIS de costos"))
	assert.Equal(t, TierDetailed, Classify("compare the Architecture"))
}

func TestClassifyEmptyIsBasic(t *testing.T) {
	assert.Equal(t, TierBasic, Classify(""))
}

func TestClassifyIsPure(t *testing.T) {
	text := "¿Qué biosurfactante puedo usar en fórmula lavaloza con pH neutro?"
	first := Classify(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Classify(text))
	}
	assert.Equal(t, TierBasic, first)
}

func TestCustomClassifier(t *testing.T) {
	c := NewClassifier(10, []string{" Roadmap "})

	assert.Equal(t, TierDetailed, c.Classify("Roadmap"))
	assert.Equal(t, TierBasic, c.Classify("plan"))
	assert.Equal(t, TierDetailed, c.Classify("eleven char"))
}

func TestOptimizePassthroughIsExact(t *testing.T) {
	assert.Equal(t, "hello", Optimize(" hello ", TargetClaude, ModeNone))
	assert.Equal(t, "hello", Optimize(" hello ", Target("whatever"), ModeNone))
}

func TestOptimizeAutoMatchesResolvedTier(t *testing.T) {
	basic := "¿Qué biosurfactante puedo usar en fórmula lavaloza con pH neutro?"
	assert.Equal(t, Optimize(basic, TargetChatGPT, ModeBasic), Optimize(basic, TargetChatGPT, ModeAuto))

	detailed := "Necesito un plan de implementación"
	assert.Equal(t, Optimize(detailed, TargetGemini, ModeDetailed), Optimize(detailed, TargetGemini, ModeAuto))
}

func TestOptimizeTemplate(t *testing.T) {
	out := Optimize("  ¿Qué pH usar?  ", TargetClaude, ModeBasic)

	assert.Contains(t, out, `Entrada del usuario: "¿Qué pH usar?"`)
	assert.Contains(t, out, "IA objetivo: Claude")
	assert.Contains(t, out, "Nota para Claude")
	assert.Contains(t, out, "- Enfoque: solución directa y concisa.")
	assert.Contains(t, out, "Qué cambió:")
	assert.NotContains(t, out, "cadena de pensamiento")

	stages := []string{"1) Deconstruir", "2) Diagnosticar", "3) Desarrollar", "4) Entregar"}
	last := -1
	for _, stage := range stages {
		idx := strings.Index(out, stage)
		require.Greater(t, idx, last, stage)
		last = idx
	}
}

func TestOptimizeDetailedAllowsReasoning(t *testing.T) {
	out := Optimize("x", TargetChatGPT, ModeDetailed)

	assert.Contains(t, out, "cadena de pensamiento resumida")
	assert.Contains(t, out, "razonamiento paso a paso")
}

func TestOptimizeUnknownTargetUsesGenericTip(t *testing.T) {
	out := Optimize("x", ParseTarget("llama"), ModeBasic)

	assert.Contains(t, out, "• Nota: Aplica mejores prácticas universales de prompts.")
	assert.Contains(t, out, "IA objetivo: Otro")
}

func TestOptimizeIsPure(t *testing.T) {
	a := Optimize("texto", TargetGemini, ModeAuto)
	b := Optimize("texto", TargetGemini, ModeAuto)
	assert.Equal(t, a, b)
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"":                        ModeAuto,
		"auto":                    ModeAuto,
		"CON ASISTENTE BÁSICO":    ModeBasic,
		"con asistente detallado": ModeDetailed,
		"SIN ASISTENTE":           ModeNone,
		"no-assistant":            ModeNone,
	}
	for raw, want := range cases {
		got, err := ParseMode(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseMode("turbo")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
