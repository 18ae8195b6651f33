package ai

import (
	"context"
	"fmt"
	"hash/fnv"

	"buscador-gpt/internal/model"
)

var mockReplies = []string{
	"🔧 (mock) He recibido tu consulta: %q. Como especialista de Ingtec, puedo ayudarte con formulaciones, procesos y análisis técnicos.",
	"🔬 (mock) Entiendo tu pregunta sobre: %q. En base a nuestra experiencia en especialidades químicas, te puedo sugerir varias alternativas.",
	"📊 (mock) Respecto a: %q. Como líder en el sector, Ingtec maneja múltiples soluciones que podrían ser relevantes para tu consulta.",
	"⚗️ (mock) Tu consulta %q es muy interesante. Te comparto información técnica basada en nuestros años de experiencia.",
}

// MockResponder answers locally for demo deployments without a chat endpoint.
// The reply depends only on the last user message.
type MockResponder struct{}

func (MockResponder) Send(ctx context.Context, history []model.Message, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &DispatchError{Kind: ErrTimeout, Message: "request cancelled", Err: err}
	}
	var question string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleUser {
			question = history[i].Content
			break
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(question))
	return fmt.Sprintf(mockReplies[h.Sum32()%uint32(len(mockReplies))], question), nil
}

func (MockResponder) Health(context.Context) (bool, error) {
	return true, nil
}
