package prompt

import (
	"errors"
	"strings"
)

var ErrUnknownMode = errors.New("unknown prompt mode")

// Mode selects how much scaffolding is added to a request before dispatch.
type Mode string

const (
	ModeAuto     Mode = "AUTO"
	ModeBasic    Mode = "BASIC-ASSISTANT"
	ModeDetailed Mode = "DETAILED-ASSISTANT"
	ModeNone     Mode = "NO-ASSISTANT"
)

// Tier is the resolved complexity of a request.
type Tier string

const (
	TierBasic    Tier = "BASIC"
	TierDetailed Tier = "DETAILED"
)

// Mode returns the assistant mode that forces this tier.
func (t Tier) Mode() Mode {
	if t == TierDetailed {
		return ModeDetailed
	}
	return ModeBasic
}

// ParseMode accepts the canonical names and the labels shown in the UI.
// An empty string is AUTO.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "AUTO":
		return ModeAuto, nil
	case "BASIC-ASSISTANT", "BASIC", "CON ASISTENTE BÁSICO", "CON ASISTENTE BASICO":
		return ModeBasic, nil
	case "DETAILED-ASSISTANT", "DETAILED", "CON ASISTENTE DETALLADO":
		return ModeDetailed, nil
	case "NO-ASSISTANT", "NONE", "SIN ASISTENTE":
		return ModeNone, nil
	default:
		return "", ErrUnknownMode
	}
}

// Target is the model family the optimized prompt is written for.
type Target string

const (
	TargetChatGPT Target = "ChatGPT"
	TargetClaude  Target = "Claude"
	TargetGemini  Target = "Gemini"
	TargetOther   Target = "Otro"
)

// ParseTarget never fails; unknown labels map to TargetOther.
func ParseTarget(raw string) Target {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "chatgpt", "gpt", "openai":
		return TargetChatGPT
	case "claude", "anthropic":
		return TargetClaude
	case "gemini", "google":
		return TargetGemini
	default:
		return TargetOther
	}
}
