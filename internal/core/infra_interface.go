package core

import (
	"context"
	"errors"
	"io"

	"github.com/markdave123-py/zapdesk/internal/models"
)

// ErrNotFound is returned by mutations that target a missing row.
var ErrNotFound = errors.New("not found")

// ErrStatusMismatch is returned when a conditional update finds the row in a
// status the patch does not expect.
var ErrStatusMismatch = errors.New("status mismatch")

// ConversationRepository persists conversations.
// Find and Get return nil, nil when nothing matches.
type ConversationRepository interface {
	FindLatestConversationByPhone(ctx context.Context, phone string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, phone string, metadata map[string]any) (*models.Conversation, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	UpdateConversation(ctx context.Context, id string, patch models.ConversationPatch) (*models.Conversation, error)
	ListConversations(ctx context.Context, filter models.ConversationFilter, page, limit int) ([]models.Conversation, int, error)
}

// MessageRepository persists messages. Results are ordered by creation time, oldest first.
type MessageRepository interface {
	AppendMessage(ctx context.Context, conversationID string, msg *models.Message) (*models.Message, error)
	RecentMessages(ctx context.Context, conversationID string, n int) ([]models.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
}

// FaqRepository persists knowledge-base entries.
type FaqRepository interface {
	ListActiveFAQs(ctx context.Context) ([]models.FAQ, error)
	IncrementFAQUsage(ctx context.Context, id string) error
	GetFAQ(ctx context.Context, id string) (*models.FAQ, error)
	CreateFAQ(ctx context.Context, faq *models.FAQ) error
	UpdateFAQ(ctx context.Context, id string, patch models.FAQPatch) (*models.FAQ, error)
	DeleteFAQ(ctx context.Context, id string) error
}

// AgentRepository persists admin agents.
type AgentRepository interface {
	CreateAgent(ctx context.Context, agent *models.Agent) error
	GetAgentByEmail(ctx context.Context, email string) (*models.Agent, error)
}

// DbClient defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	ConversationRepository
	MessageRepository
	FaqRepository
	AgentRepository

	Close() error
}

// SendResult is the provider's acknowledgement of an outbound message.
type SendResult struct {
	MessageID string
}

// MessageSender delivers text to a WhatsApp number. A non-nil error means the
// message was not accepted by the provider.
type MessageSender interface {
	Send(ctx context.Context, phoneNumber, text string) (*SendResult, error)
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
}

// TranscriptArchiver stores a closed conversation somewhere durable.
type TranscriptArchiver interface {
	Archive(ctx context.Context, conv *models.Conversation, msgs []models.Message) (location string, err error)
}
