package prompt

import (
	"strings"
	"unicode/utf8"
)

const DefaultThreshold = 400

// DefaultKeywords mark planning, analysis or architecture intent.
var DefaultKeywords = []string{
	"plan", "arquitectura", "análisis", "analisis", "comparativo", "pasos",
	"implementación", "implementacion", "estrategia", "profesional", "sistémico", "sistemico",
	"marco", "framework", "requisitos", "restricciones",
	"strategy", "architecture", "comparative", "requirements", "steps", "implementation", "analysis",
}

// Classifier maps raw user text to a Tier. The zero value uses the defaults.
type Classifier struct {
	// Threshold is the rune count above which text is DETAILED.
	Threshold int
	Keywords  []string
}

var DefaultClassifier = Classifier{Threshold: DefaultThreshold, Keywords: DefaultKeywords}

// NewClassifier falls back to the defaults for a non-positive threshold or an
// empty keyword list.
func NewClassifier(threshold int, keywords []string) Classifier {
	c := Classifier{Threshold: threshold}
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			c.Keywords = append(c.Keywords, k)
		}
	}
	return c.withDefaults()
}

func (c Classifier) withDefaults() Classifier {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if len(c.Keywords) == 0 {
		c.Keywords = DefaultKeywords
	}
	return c
}

// Classify is DETAILED when the text is longer than the threshold or contains
// any keyword (case-insensitive substring). Either condition suffices.
func (c Classifier) Classify(text string) Tier {
	c = c.withDefaults()
	if utf8.RuneCountInString(text) > c.Threshold {
		return TierDetailed
	}
	lower := strings.ToLower(text)
	for _, k := range c.Keywords {
		if strings.Contains(lower, k) {
			return TierDetailed
		}
	}
	return TierBasic
}

func Classify(text string) Tier {
	return DefaultClassifier.Classify(text)
}
