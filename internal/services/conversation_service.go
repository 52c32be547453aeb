package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/zapdesk/internal/core"
	"github.com/markdave123-py/zapdesk/internal/core/chatbot"
	"github.com/markdave123-py/zapdesk/internal/models"
)

// Fixed customer-facing notices.
const (
	TransferNotice            = "🔄 Transferindo você para um atendente humano. Aguarde um momento..."
	ManualTransferNotice      = "🔄 Sua conversa foi transferida para um atendente especializado. Em breve você será atendido!"
	TechnicalDifficultyNotice = "Desculpe, estou com dificuldades técnicas. Por favor, tente novamente em alguns instantes."
)

// Reply sources recorded in bot message metadata.
const (
	SourceFAQ       = "faq"
	SourceGenerated = "generated"
)

// SourceWhatsApp marks conversations opened by the provider webhook.
const SourceWhatsApp = "whatsapp"

// Conversations an agent or the bot may still act on.
var openStatuses = []models.ConversationStatus{models.StatusActive, models.StatusTransferred}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ProcessResult is the outcome of handling one inbound message. BotMessage is
// nil when the conversation is owned by a human agent.
type ProcessResult struct {
	Conversation *models.Conversation `json:"conversation"`
	UserMessage  *models.Message      `json:"user_message"`
	BotMessage   *models.Message      `json:"bot_message,omitempty"`
	Transferred  bool                 `json:"transferred"`
}

// History is a conversation with all of its messages.
type History struct {
	Conversation *models.Conversation `json:"conversation"`
	Messages     []models.Message     `json:"messages"`
	Stats        models.MessageStats  `json:"stats"`
}

type ConversationService struct {
	db        core.DbClient
	responder *chatbot.Responder
	sender    core.MessageSender
	archiver  core.TranscriptArchiver
	locks     *phoneLocks
	now       func() time.Time
}

// NewConversationService wires the message pipeline. archiver may be nil.
func NewConversationService(db core.DbClient, responder *chatbot.Responder, sender core.MessageSender, archiver core.TranscriptArchiver) *ConversationService {
	return &ConversationService{
		db:        db,
		responder: responder,
		sender:    sender,
		archiver:  archiver,
		locks:     newPhoneLocks(),
		now:       time.Now,
	}
}

// ProcessIncomingMessage runs the full pipeline for one inbound message.
// Messages from the same phone number never run concurrently.
func (s *ConversationService) ProcessIncomingMessage(ctx context.Context, phone, text string, metadata map[string]any) (*ProcessResult, error) {
	unlock := s.locks.Lock(phone)
	defer unlock()

	res, err := s.process(ctx, phone, text, metadata)
	if err != nil {
		log.Printf("[conversation] processing message from %s failed: %v", phone, err)
		if _, sendErr := s.sender.Send(ctx, phone, TechnicalDifficultyNotice); sendErr != nil {
			log.Printf("[conversation] apology to %s failed: %v", phone, sendErr)
		}
		return nil, err
	}
	return res, nil
}

// Handle adapts ProcessIncomingMessage to the dispatcher.
func (s *ConversationService) Handle(ctx context.Context, msg models.InboundMessage) error {
	_, err := s.ProcessIncomingMessage(ctx, msg.PhoneNumber, msg.Text, msg.Metadata)
	return err
}

func (s *ConversationService) process(ctx context.Context, phone, text string, metadata map[string]any) (*ProcessResult, error) {
	conv, err := s.resolveConversation(ctx, phone, metadata)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.db.AppendMessage(ctx, conv.ID, &models.Message{
		Sender:   models.SenderUser,
		Text:     text,
		Type:     models.MessageTypeText,
		Metadata: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	if conv.Status == models.StatusTransferred {
		log.Printf("[conversation] %s is with a human agent; message stored only", conv.ID)
		return &ProcessResult{Conversation: conv, UserMessage: userMsg, Transferred: true}, nil
	}

	previous, err := s.recentContext(ctx, conv.ID, userMsg.ID)
	if err != nil {
		return nil, err
	}

	faqs, err := s.db.ListActiveFAQs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load faqs: %w", err)
	}

	var (
		replyText     string
		intent        chatbot.Intent
		sentiment     chatbot.Sentiment
		requiresHuman bool
		source        string
	)
	if best, ok := chatbot.BestMatch(chatbot.MatchFAQs(text, faqs)); ok {
		log.Printf("[conversation] faq %s matched with score %d", best.FAQ.ID, best.Score)
		replyText = best.FAQ.Answer
		intent = chatbot.IntentFAQ
		sentiment = chatbot.ClassifySentiment(text)
		source = SourceFAQ
		if err := s.db.IncrementFAQUsage(ctx, best.FAQ.ID); err != nil {
			log.Printf("[conversation] faq %s usage increment failed: %v", best.FAQ.ID, err)
		}
	} else {
		reply := s.responder.Generate(ctx, text, conv.ID, previous)
		replyText = reply.Text
		intent = reply.Intent
		sentiment = reply.Sentiment
		requiresHuman = reply.RequiresHuman
		source = SourceGenerated
	}

	intentTag, sentimentTag := string(intent), string(sentiment)
	botMsg, err := s.db.AppendMessage(ctx, conv.ID, &models.Message{
		Sender:    models.SenderBot,
		Text:      replyText,
		Type:      models.MessageTypeText,
		Intent:    &intentTag,
		Sentiment: &sentimentTag,
		Metadata: map[string]any{
			"requiresHuman": requiresHuman,
			"userSentiment": sentimentTag,
			"source":        source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store bot message: %w", err)
	}

	if _, err := s.sender.Send(ctx, phone, replyText); err != nil {
		return nil, fmt.Errorf("deliver reply: %w", err)
	}

	res := &ProcessResult{Conversation: conv, UserMessage: userMsg, BotMessage: botMsg}
	if requiresHuman {
		now := s.now()
		status := models.StatusTransferred
		updated, err := s.db.UpdateConversation(ctx, conv.ID, models.ConversationPatch{
			Status:        &status,
			TransferredAt: &now,
			ExpectStatus:  []models.ConversationStatus{models.StatusActive},
		})
		if errors.Is(err, core.ErrStatusMismatch) {
			log.Printf("[conversation] %s changed status while replying; escalation skipped", conv.ID)
			if latest, err := s.db.GetConversation(ctx, conv.ID); err == nil && latest != nil {
				res.Conversation = latest
			}
			return res, nil
		}
		if err != nil {
			return nil, fmt.Errorf("transfer conversation: %w", err)
		}
		conv = updated
		log.Printf("[conversation] %s escalated to a human agent", conv.ID)
		s.notify(ctx, phone, TransferNotice)
		res.Conversation = conv
		res.Transferred = true
	}
	return res, nil
}

// resolveConversation returns the phone's current conversation, creating one
// when none exists or the latest is closed.
func (s *ConversationService) resolveConversation(ctx context.Context, phone string, metadata map[string]any) (*models.Conversation, error) {
	conv, err := s.db.FindLatestConversationByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if conv != nil && conv.Status != models.StatusClosed {
		touched, err := s.db.UpdateConversation(ctx, conv.ID, models.ConversationPatch{ExpectStatus: openStatuses})
		if err == nil {
			return touched, nil
		}
		if !errors.Is(err, core.ErrStatusMismatch) {
			return nil, fmt.Errorf("touch conversation: %w", err)
		}
	}

	meta := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["source"] = SourceWhatsApp
	conv, err = s.db.CreateConversation(ctx, phone, meta)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	log.Printf("[conversation] started %s for %s", conv.ID, phone)
	return conv, nil
}

// recentContext loads the messages preceding the one just stored.
func (s *ConversationService) recentContext(ctx context.Context, conversationID, excludeID string) ([]models.Message, error) {
	recent, err := s.db.RecentMessages(ctx, conversationID, chatbot.ContextWindow+1)
	if err != nil {
		return nil, fmt.Errorf("load context: %w", err)
	}
	previous := make([]models.Message, 0, len(recent))
	for _, m := range recent {
		if m.ID != excludeID {
			previous = append(previous, m)
		}
	}
	if len(previous) > chatbot.ContextWindow {
		previous = previous[len(previous)-chatbot.ContextWindow:]
	}
	return previous, nil
}

func (s *ConversationService) notify(ctx context.Context, phone, text string) {
	if _, err := s.sender.Send(ctx, phone, text); err != nil {
		log.Printf("[conversation] notice to %s failed: %v", phone, err)
	}
}

// GetHistory returns a conversation with its messages and statistics.
func (s *ConversationService) GetHistory(ctx context.Context, id string) (*History, error) {
	var (
		conv *models.Conversation
		msgs []models.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		conv, err = s.db.GetConversation(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		msgs, err = s.db.ListMessages(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load history %s: %w", id, err)
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %s: %w", id, core.ErrNotFound)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return &History{Conversation: conv, Messages: msgs, Stats: Stats(msgs)}, nil
}

// Stats counts messages by sender, intent and sentiment.
func Stats(msgs []models.Message) models.MessageStats {
	st := models.MessageStats{
		Total:      len(msgs),
		Intents:    map[string]int{},
		Sentiments: map[string]int{},
	}
	for _, m := range msgs {
		switch m.Sender {
		case models.SenderUser:
			st.ByUser++
		case models.SenderBot:
			st.ByBot++
		}
		st.Intents[tagOrUnknown(m.Intent)]++
		st.Sentiments[tagOrUnknown(m.Sentiment)]++
	}
	return st
}

func tagOrUnknown(tag *string) string {
	if tag == nil || *tag == "" {
		return "unknown"
	}
	return *tag
}

// ListConversations returns one page of conversations, most recently updated first.
func (s *ConversationService) ListConversations(ctx context.Context, filter models.ConversationFilter, page, limit int) ([]models.Conversation, models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		verr := &ValidationError{}
		verr.add("status", "must be one of active, transferred, closed")
		return nil, models.Pagination{}, verr
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	items, total, err := s.db.ListConversations(ctx, filter, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("list conversations: %w", err)
	}
	if items == nil {
		items = []models.Conversation{}
	}
	return items, models.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// TransferConversation hands a conversation to agentID and tells the customer.
// Reassigning an already transferred conversation is allowed.
func (s *ConversationService) TransferConversation(ctx context.Context, id, agentID string) (*models.Conversation, error) {
	conv, err := s.db.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %s: %w", id, core.ErrNotFound)
	}
	if conv.Status == models.StatusClosed {
		return nil, fmt.Errorf("conversation %s is closed: %w", id, ErrInvalidTransition)
	}

	now := s.now()
	status := models.StatusTransferred
	patch := models.ConversationPatch{Status: &status, TransferredAt: &now, ExpectStatus: openStatuses}
	if agentID != "" {
		patch.AssignedTo = &agentID
	}
	conv, err = s.db.UpdateConversation(ctx, id, patch)
	if errors.Is(err, core.ErrStatusMismatch) {
		return nil, fmt.Errorf("conversation %s is closed: %w", id, ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("transfer conversation: %w", err)
	}

	log.Printf("[conversation] %s transferred to agent %q", id, agentID)
	s.notify(ctx, conv.PhoneNumber, ManualTransferNotice)
	return conv, nil
}

// CloseConversation closes a conversation and archives its transcript when an
// archiver is configured. Archive failures do not fail the close.
func (s *ConversationService) CloseConversation(ctx context.Context, id string, reason *string) (*models.Conversation, error) {
	conv, err := s.db.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %s: %w", id, core.ErrNotFound)
	}
	if conv.Status == models.StatusClosed {
		return nil, fmt.Errorf("conversation %s already closed: %w", id, ErrInvalidTransition)
	}

	now := s.now()
	status := models.StatusClosed
	conv, err = s.db.UpdateConversation(ctx, id, models.ConversationPatch{
		Status:       &status,
		ClosedAt:     &now,
		CloseReason:  reason,
		ExpectStatus: openStatuses,
	})
	if errors.Is(err, core.ErrStatusMismatch) {
		return nil, fmt.Errorf("conversation %s already closed: %w", id, ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("close conversation: %w", err)
	}
	log.Printf("[conversation] %s closed", id)

	if s.archiver != nil {
		s.archive(ctx, conv)
	}
	return conv, nil
}

func (s *ConversationService) archive(ctx context.Context, conv *models.Conversation) {
	msgs, err := s.db.ListMessages(ctx, conv.ID)
	if err != nil {
		log.Printf("[conversation] archive %s: load messages: %v", conv.ID, err)
		return
	}
	location, err := s.archiver.Archive(ctx, conv, msgs)
	if err != nil {
		log.Printf("[conversation] archive %s failed: %v", conv.ID, err)
		return
	}
	log.Printf("[conversation] %s archived to %s", conv.ID, location)
}
