package services

import (
	"context"
	"errors"
	"sync"

	"github.com/markdave123-py/zapdesk/internal/core"
	"github.com/markdave123-py/zapdesk/internal/core/chatbot"
	db "github.com/markdave123-py/zapdesk/internal/core/database"
	"github.com/markdave123-py/zapdesk/internal/models"
)

type sentMessage struct {
	phone, text string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) Send(_ context.Context, phone, text string) (*core.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{phone, text})
	if f.err != nil {
		return nil, f.err
	}
	return &core.SendResult{MessageID: "SM1"}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.text
	}
	return out
}

type fakeBackend struct {
	mu        sync.Mutex
	reply     string
	err       error
	calls     int
	histories [][]core.Turn
	onReply   func()
}

func (f *fakeBackend) Reply(_ context.Context, history []core.Turn, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.histories = append(f.histories, history)
	if f.onReply != nil {
		f.onReply()
	}
	return f.reply, f.err
}

type fakeArchiver struct {
	conv *models.Conversation
	msgs []models.Message
	err  error
}

func (f *fakeArchiver) Archive(_ context.Context, conv *models.Conversation, msgs []models.Message) (string, error) {
	f.conv, f.msgs = conv, msgs
	if f.err != nil {
		return "", f.err
	}
	return "s3://transcripts/" + conv.ID, nil
}

// failingDB fails bot message writes.
type failingDB struct {
	*db.MemoryClient
}

func (f failingDB) AppendMessage(ctx context.Context, id string, msg *models.Message) (*models.Message, error) {
	if msg.Sender == models.SenderBot {
		return nil, errors.New("storage unavailable")
	}
	return f.MemoryClient.AppendMessage(ctx, id, msg)
}

// staleReadDB reports every conversation as active, like a read that lost a
// race with a concurrent close.
type staleReadDB struct {
	*db.MemoryClient
}

func (s staleReadDB) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	conv, err := s.MemoryClient.GetConversation(ctx, id)
	if conv != nil {
		conv.Status = models.StatusActive
	}
	return conv, err
}

type fixture struct {
	db       *db.MemoryClient
	backend  *fakeBackend
	sender   *fakeSender
	archiver *fakeArchiver
	svc      *ConversationService
}

func newFixture() *fixture {
	f := &fixture{
		db:       db.NewMemoryClient(),
		backend:  &fakeBackend{reply: "Olá! Como posso ajudar?"},
		sender:   &fakeSender{},
		archiver: &fakeArchiver{},
	}
	f.svc = NewConversationService(f.db, chatbot.NewResponder(f.backend), f.sender, f.archiver)
	return f
}
