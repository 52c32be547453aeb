package models

import (
	"time"
)

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	StatusActive      ConversationStatus = "active"
	StatusTransferred ConversationStatus = "transferred"
	StatusClosed      ConversationStatus = "closed"
)

// Valid reports whether s is one of the known statuses.
func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusActive, StatusTransferred, StatusClosed:
		return true
	}
	return false
}

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// MessageTypeText is the default message type.
const MessageTypeText = "text"

// Agent is a human support agent allowed to use the admin API.
type Agent struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Conversation is one support thread with a WhatsApp number.
type Conversation struct {
	ID            string             `db:"id" json:"id"`
	PhoneNumber   string             `db:"phone_number" json:"phone_number"`
	Status        ConversationStatus `db:"status" json:"status"`
	AssignedTo    *string            `db:"assigned_to" json:"assigned_to"`
	Metadata      map[string]any     `db:"metadata" json:"metadata"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
	TransferredAt *time.Time         `db:"transferred_at" json:"transferred_at"`
	ClosedAt      *time.Time         `db:"closed_at" json:"closed_at"`
	CloseReason   *string            `db:"close_reason" json:"close_reason"`

	// MessageCount is only populated by list queries.
	MessageCount int `db:"-" json:"message_count,omitempty"`
}

// Message is a single inbound or outbound text in a conversation.
type Message struct {
	ID             string         `db:"id" json:"id"`
	ConversationID string         `db:"conversation_id" json:"conversation_id"`
	Sender         Sender         `db:"sender" json:"sender"`
	Text           string         `db:"text" json:"text"`
	Type           string         `db:"message_type" json:"message_type"`
	Intent         *string        `db:"intent" json:"intent"`
	Sentiment      *string        `db:"sentiment" json:"sentiment"`
	Metadata       map[string]any `db:"metadata" json:"metadata"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// FAQ is a knowledge-base entry used for deterministic replies.
type FAQ struct {
	ID         string    `db:"id" json:"id"`
	Question   string    `db:"question" json:"question"`
	Answer     string    `db:"answer" json:"answer"`
	Keywords   []string  `db:"keywords" json:"keywords"`
	Category   string    `db:"category" json:"category"`
	Priority   int       `db:"priority" json:"priority"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	UsageCount int       `db:"usage_count" json:"usage_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ConversationPatch lists the fields an update may change. Nil fields are left
// untouched; updated_at is always refreshed.
//
// When ExpectStatus is set the update only applies while the stored status is
// one of the listed values, checked in the same write.
type ConversationPatch struct {
	Status        *ConversationStatus
	AssignedTo    *string
	TransferredAt *time.Time
	ClosedAt      *time.Time
	CloseReason   *string
	ExpectStatus  []ConversationStatus
}

// Allows reports whether the patch may apply to a conversation in status s.
func (p ConversationPatch) Allows(s ConversationStatus) bool {
	if len(p.ExpectStatus) == 0 {
		return true
	}
	for _, want := range p.ExpectStatus {
		if want == s {
			return true
		}
	}
	return false
}

// FAQPatch is a partial FAQ update.
type FAQPatch struct {
	Question *string   `json:"question"`
	Answer   *string   `json:"answer"`
	Keywords *[]string `json:"keywords"`
	Category *string   `json:"category"`
	Priority *int      `json:"priority"`
	IsActive *bool     `json:"is_active"`
}

// Empty reports whether the patch changes nothing.
func (p FAQPatch) Empty() bool {
	return p.Question == nil && p.Answer == nil && p.Keywords == nil &&
		p.Category == nil && p.Priority == nil && p.IsActive == nil
}

// ConversationFilter narrows conversation listings.
type ConversationFilter struct {
	Status     ConversationStatus
	AssignedTo string
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// MessageStats summarises the messages of a conversation.
type MessageStats struct {
	Total      int            `json:"total"`
	ByUser     int            `json:"by_user"`
	ByBot      int            `json:"by_bot"`
	Intents    map[string]int `json:"intents"`
	Sentiments map[string]int `json:"sentiments"`
}

// InboundMessage is a normalized message received from the provider webhook.
type InboundMessage struct {
	PhoneNumber string
	Text        string
	Metadata    map[string]any
}
