package prompt

import (
	"strings"
)

// Optimizer wraps user text in the structured assistant template.
type Optimizer struct {
	Classifier Classifier
}

var defaultOptimizer = Optimizer{Classifier: DefaultClassifier}

// Optimize uses the default classifier for AUTO.
func Optimize(text string, target Target, mode Mode) string {
	return defaultOptimizer.Optimize(text, target, mode)
}

// Optimize is a pure function of its inputs. NO-ASSISTANT returns the trimmed
// text and nothing else; unknown modes are treated as AUTO.
func (o Optimizer) Optimize(text string, target Target, mode Mode) string {
	trimmed := strings.TrimSpace(text)

	var tier Tier
	switch mode {
	case ModeNone:
		return trimmed
	case ModeBasic:
		tier = TierBasic
	case ModeDetailed:
		tier = TierDetailed
	default:
		tier = o.Classifier.Classify(text)
	}

	var b strings.Builder
	b.WriteString(structuredPrompt(trimmed, target, tier))
	b.WriteString("\n\n")
	b.WriteString(changeSummary(tier))
	return b.String()
}

func structuredPrompt(input string, target Target, tier Tier) string {
	label := string(target)
	if label == "" {
		label = string(TargetOther)
	}
	lines := []string{
		"Rol: Eres Asistente Ingtec, experta en optimización y resolución precisa.",
		"IA objetivo: " + label,
		"Objetivo: Resolver la solicitud del usuario con precisión y estructura.",
		`Entrada del usuario: "` + input + `"`,
		"Metodología 4-D:",
		"1) Deconstruir: identifica intención, entidades clave, requisitos y vacíos.",
		"2) Diagnosticar: detecta ambigüedades y define lo que falta.",
		"3) Desarrollar: selecciona técnicas óptimas (restricciones, ejemplos, razonamiento).",
		"4) Entregar: produce respuesta final con formato claro.",
		targetTip(target),
		"Especificaciones de salida:",
		"- Formato: pasos numerados, secciones, bullets concisos.",
		"- Tono: profesional y claro.",
		"- Validación: incluye supuestos si faltan datos y solicita 2-3 aclaraciones breves si es necesario.",
	}
	if tier == TierDetailed {
		lines = append(lines, "- Complejidad: permite cadena de pensamiento resumida y marcos sistemáticos.")
	} else {
		lines = append(lines, "- Enfoque: solución directa y concisa.")
	}
	return strings.Join(lines, "\n")
}

func targetTip(target Target) string {
	switch target {
	case TargetClaude:
		return "• Nota para Claude: Aprovecha contexto largo y marcos de razonamiento."
	case TargetGemini:
		return "• Nota para Gemini: Enfatiza creatividad y análisis comparativo cuando aplique."
	case TargetChatGPT:
		return "• Nota para ChatGPT: Usa secciones claras y pasos accionables."
	default:
		return "• Nota: Aplica mejores prácticas universales de prompts."
	}
}

func changeSummary(tier Tier) string {
	if tier == TierDetailed {
		return strings.Join([]string{
			"Qué cambió:",
			"- Se añadió un rol experto y un objetivo explícito.",
			"- Se estructuró la solicitud con la metodología 4-D.",
			"- Se habilitó razonamiento paso a paso resumido para un pedido complejo.",
			"Técnicas aplicadas: asignación de rol, descomposición en etapas, especificación de formato, marcos sistemáticos.",
		}, "\n")
	}
	return strings.Join([]string{
		"Qué cambió:",
		"- Se añadió un rol experto y un objetivo explícito.",
		"- Se pidió una respuesta directa y concisa.",
		"Técnicas aplicadas: asignación de rol, especificación de formato, claridad.",
	}, "\n")
}
