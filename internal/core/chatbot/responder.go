package chatbot

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/markdave123-py/zapdesk/internal/core"
	"github.com/markdave123-py/zapdesk/internal/models"
)

// ContextWindow is the number of prior messages passed to the backend.
const ContextWindow = 10

// GeneratedConfidence is reported for every successful generation.
const GeneratedConfidence = 0.85

// FallbackReply is sent when the generation backend fails.
const FallbackReply = "Desculpe, estou com dificuldades técnicas no momento. Vou transferir você para um atendente humano. 🙏"

var errEmptyReply = errors.New("generation backend returned an empty reply")

// Reply is the outcome of one generation attempt. It is always usable: on
// backend failure Text holds FallbackReply and Err records the cause.
type Reply struct {
	Text          string
	Intent        Intent
	Sentiment     Sentiment
	Confidence    float64
	RequiresHuman bool
	GeneratedAt   time.Time
	Err           error
}

// Responder wraps a text-generation backend with context building,
// classification and the escalation policy.
type Responder struct {
	backend core.TextGenerationBackend
	now     func() time.Time
}

func NewResponder(backend core.TextGenerationBackend) *Responder {
	return &Responder{backend: backend, now: time.Now}
}

// Generate produces a reply for userMessage. previous holds the conversation's
// earlier messages, oldest first; only the last ContextWindow are used.
func (r *Responder) Generate(ctx context.Context, userMessage, conversationID string, previous []models.Message) Reply {
	history := BuildContext(previous)

	text, err := r.backend.Reply(ctx, history, userMessage)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyReply
	}
	if err != nil {
		log.Printf("[responder] generation failed for conversation %s: %v", conversationID, err)
		return Reply{
			Text:          FallbackReply,
			Intent:        IntentError,
			Sentiment:     ClassifySentiment(userMessage),
			Confidence:    0,
			RequiresHuman: true,
			GeneratedAt:   r.now(),
			Err:           err,
		}
	}

	intent := ClassifyIntent(userMessage)
	log.Printf("[responder] generated reply for conversation %s (intent=%s)", conversationID, intent)

	return Reply{
		Text:          text,
		Intent:        intent,
		Sentiment:     ClassifySentiment(userMessage),
		Confidence:    GeneratedConfidence,
		RequiresHuman: ShouldEscalate(userMessage, intent),
		GeneratedAt:   r.now(),
	}
}

// BuildContext turns the last ContextWindow messages into backend turns.
func BuildContext(previous []models.Message) []core.Turn {
	if len(previous) > ContextWindow {
		previous = previous[len(previous)-ContextWindow:]
	}

	turns := make([]core.Turn, 0, len(previous))
	for _, m := range previous {
		role := core.RoleBot
		if m.Sender == models.SenderUser {
			role = core.RoleUser
		}
		turns = append(turns, core.Turn{Role: role, Text: m.Text})
	}
	return turns
}
