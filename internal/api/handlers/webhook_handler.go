package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/markdave123-py/zapdesk/internal/core/messaging"
	"github.com/markdave123-py/zapdesk/internal/models"
	"github.com/markdave123-py/zapdesk/internal/services"
)

const MaxTestMessageLen = 4096

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

type messageQueue interface {
	Enqueue(ctx context.Context, msg models.InboundMessage) error
}

type WebhookHandler struct {
	queue         messageQueue
	conversations *services.ConversationService
	verifyToken   string
	verbose       bool
	delivered     *deliveryIDs
}

func NewWebhookHandler(queue messageQueue, conversations *services.ConversationService, verifyToken string, verbose bool) *WebhookHandler {
	return &WebhookHandler{
		queue:         queue,
		conversations: conversations,
		verifyToken:   verifyToken,
		verbose:       verbose,
		delivered:     newDeliveryIDs(DeliveryTTL),
	}
}

// Verify answers the provider's subscription handshake.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && h.verifyToken != "" && q.Get("hub.verify_token") == h.verifyToken {
		log.Println("[webhook] verified")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	log.Println("[webhook] verification failed")
	writeError(w, http.StatusForbidden, "invalid verify token", nil)
}

// Receive normalizes inbound messages, queues them and acknowledges at once.
// Messages whose provider id was already queued are skipped, so a batch the
// provider retries after a 503 only queues what was missed.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	msgs, err := parseInbound(w, r)
	if err != nil {
		log.Printf("[webhook] unreadable payload: %v", err)
		writeError(w, http.StatusBadRequest, "invalid payload", nil)
		return
	}

	queued, duplicates := 0, 0
	for _, m := range msgs {
		id, _ := m.Metadata["message_id"].(string)
		if id != "" && !h.delivered.claim(id) {
			duplicates++
			continue
		}
		if err := h.queue.Enqueue(r.Context(), m); err != nil {
			if id != "" {
				h.delivered.release(id)
			}
			log.Printf("[webhook] enqueue message from %s: %v (%d of %d queued)", m.PhoneNumber, err, queued, len(msgs))
			writeError(w, http.StatusServiceUnavailable, "unable to accept messages right now", nil)
			return
		}
		queued++
	}
	if duplicates > 0 {
		log.Printf("[webhook] skipped %d already queued messages", duplicates)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "queued": queued, "duplicates": duplicates})
}

type testMessageRequest struct {
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
}

// Test runs the pipeline synchronously for a simulated message.
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req testMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	var details []services.FieldError
	if !phonePattern.MatchString(req.PhoneNumber) {
		details = append(details, fieldError("phone_number", "must be a valid phone number")...)
	}
	if n := utf8.RuneCountInString(req.Message); strings.TrimSpace(req.Message) == "" || n > MaxTestMessageLen {
		details = append(details, fieldError("message", "must be between 1 and 4096 characters")...)
	}
	if details != nil {
		writeError(w, http.StatusBadRequest, "validation failed", details)
		return
	}

	res, err := h.conversations.ProcessIncomingMessage(r.Context(), req.PhoneNumber, req.Message, map[string]any{
		"type":      models.MessageTypeText,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"test":      true,
	})
	if err != nil {
		writeServiceError(w, err, h.verbose)
		return
	}
	writeData(w, http.StatusOK, res)
}

type webhookPayload struct {
	Messages []webhookMessage `json:"messages"`
}

type webhookMessage struct {
	From        string          `json:"from"`
	PhoneNumber string          `json:"phone_number"`
	Text        json.RawMessage `json:"text"`
	Body        string          `json:"body"`
	Message     string          `json:"message"`
	ID          string          `json:"id"`
	MessageID   string          `json:"message_id"`
	Timestamp   any             `json:"timestamp"`
	Type        string          `json:"type"`
	FromMe      bool            `json:"from_me"`
	Sender      string          `json:"sender"`
}

// text accepts {"text":{"body":...}}, {"text":"..."}, "body" or "message".
func (m webhookMessage) text() string {
	if raw := bytes.TrimSpace(m.Text); len(raw) > 0 {
		var obj struct {
			Body string `json:"body"`
		}
		if raw[0] == '{' && json.Unmarshal(raw, &obj) == nil && obj.Body != "" {
			return obj.Body
		}
		var s string
		if raw[0] == '"' && json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	if m.Body != "" {
		return m.Body
	}
	return m.Message
}

func parseInbound(w http.ResponseWriter, r *http.Request) ([]models.InboundMessage, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		return parseTwilioForm(r)
	}

	var payload webhookPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		if err == errEmptyBody {
			return nil, nil
		}
		return nil, err
	}

	var out []models.InboundMessage
	for _, m := range payload.Messages {
		phone := m.From
		if phone == "" {
			phone = m.PhoneNumber
		}
		phone = messaging.StripWhatsAppPrefix(phone)
		text := m.text()
		if phone == "" || text == "" {
			log.Println("[webhook] skipping incomplete message")
			continue
		}
		if m.FromMe || m.Sender == "bot" {
			continue
		}

		id := m.ID
		if id == "" {
			id = m.MessageID
		}
		typ := m.Type
		if typ == "" {
			typ = models.MessageTypeText
		}
		ts := m.Timestamp
		if ts == nil || ts == "" {
			ts = time.Now().UTC().Format(time.RFC3339)
		}
		out = append(out, models.InboundMessage{
			PhoneNumber: phone,
			Text:        text,
			Metadata:    map[string]any{"message_id": id, "timestamp": ts, "type": typ},
		})
	}
	return out, nil
}

func parseTwilioForm(r *http.Request) ([]models.InboundMessage, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	phone := messaging.StripWhatsAppPrefix(r.PostForm.Get("From"))
	text := r.PostForm.Get("Body")
	if phone == "" || text == "" {
		log.Println("[webhook] skipping incomplete twilio message")
		return nil, nil
	}

	meta := map[string]any{
		"message_id": r.PostForm.Get("MessageSid"),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"type":       models.MessageTypeText,
	}
	if name := r.PostForm.Get("ProfileName"); name != "" {
		meta["profile_name"] = name
	}
	return []models.InboundMessage{{PhoneNumber: phone, Text: text, Metadata: meta}}, nil
}
