package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/zapdesk/internal/core"
	"github.com/markdave123-py/zapdesk/internal/models"
)

// MemoryClient is a process-local DbClient with the same ordering semantics
// as the Postgres client. Used for local development and tests.
type MemoryClient struct {
	mu sync.RWMutex

	now func() time.Time
	seq int64

	agents        map[string]models.Agent // by email
	conversations []models.Conversation   // insertion order
	messages      map[string][]models.Message
	faqs          []models.FAQ
}

var _ core.DbClient = (*MemoryClient)(nil)

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		now:      time.Now,
		agents:   make(map[string]models.Agent),
		messages: make(map[string][]models.Message),
	}
}

func (c *MemoryClient) Close() error { return nil }

// tick returns a strictly increasing timestamp so ordering by time matches
// insertion order even when the clock does not advance.
func (c *MemoryClient) tick() time.Time {
	c.seq++
	return c.now().Add(time.Duration(c.seq) * time.Nanosecond)
}

func (c *MemoryClient) CreateAgent(_ context.Context, agent *models.Agent) error {
	if agent == nil {
		return errors.New("nil agent")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.agents[agent.Email]; ok {
		return fmt.Errorf("agent %s already exists", agent.Email)
	}
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	now := c.tick()
	agent.CreatedAt, agent.UpdatedAt = now, now
	c.agents[agent.Email] = *agent
	return nil
}

func (c *MemoryClient) GetAgentByEmail(_ context.Context, email string) (*models.Agent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.agents[email]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (c *MemoryClient) FindLatestConversationByPhone(_ context.Context, phone string) (*models.Conversation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var latest *models.Conversation
	for i := range c.conversations {
		conv := &c.conversations[i]
		if conv.PhoneNumber != phone {
			continue
		}
		if latest == nil || !conv.CreatedAt.Before(latest.CreatedAt) {
			latest = conv
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := cloneConversation(*latest)
	return &out, nil
}

func (c *MemoryClient) CreateConversation(_ context.Context, phone string, metadata map[string]any) (*models.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.tick()
	conv := models.Conversation{
		ID:          uuid.NewString(),
		PhoneNumber: phone,
		Status:      models.StatusActive,
		Metadata:    cloneMap(metadata),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.conversations = append(c.conversations, conv)
	out := cloneConversation(conv)
	return &out, nil
}

func (c *MemoryClient) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.conversationIndex(id); i >= 0 {
		out := cloneConversation(c.conversations[i])
		return &out, nil
	}
	return nil, nil
}

func (c *MemoryClient) UpdateConversation(_ context.Context, id string, patch models.ConversationPatch) (*models.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.conversationIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("conversation %s: %w", id, core.ErrNotFound)
	}
	conv := &c.conversations[i]
	if !patch.Allows(conv.Status) {
		return nil, fmt.Errorf("conversation %s is %s: %w", id, conv.Status, core.ErrStatusMismatch)
	}
	if patch.Status != nil {
		conv.Status = *patch.Status
	}
	if patch.AssignedTo != nil {
		v := *patch.AssignedTo
		conv.AssignedTo = &v
	}
	if patch.TransferredAt != nil {
		v := *patch.TransferredAt
		conv.TransferredAt = &v
	}
	if patch.ClosedAt != nil {
		v := *patch.ClosedAt
		conv.ClosedAt = &v
	}
	if patch.CloseReason != nil {
		v := *patch.CloseReason
		conv.CloseReason = &v
	}
	conv.UpdatedAt = c.tick()

	out := cloneConversation(*conv)
	return &out, nil
}

func (c *MemoryClient) ListConversations(_ context.Context, filter models.ConversationFilter, page, limit int) ([]models.Conversation, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matched []models.Conversation
	for _, conv := range c.conversations {
		if filter.Status != "" && conv.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != "" && (conv.AssignedTo == nil || *conv.AssignedTo != filter.AssignedTo) {
			continue
		}
		out := cloneConversation(conv)
		out.MessageCount = len(c.messages[conv.ID])
		matched = append(matched, out)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	total := len(matched)
	start := (page - 1) * limit
	if start >= total || start < 0 {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (c *MemoryClient) AppendMessage(_ context.Context, conversationID string, msg *models.Message) (*models.Message, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conversationIndex(conversationID) < 0 {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, core.ErrNotFound)
	}
	stored := *msg
	stored.ID = uuid.NewString()
	stored.ConversationID = conversationID
	stored.Metadata = cloneMap(msg.Metadata)
	if stored.Type == "" {
		stored.Type = models.MessageTypeText
	}
	stored.CreatedAt = c.tick()
	c.messages[conversationID] = append(c.messages[conversationID], stored)

	out := stored
	return &out, nil
}

func (c *MemoryClient) RecentMessages(_ context.Context, conversationID string, n int) ([]models.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := c.messages[conversationID]
	if n >= 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return append([]models.Message(nil), all...), nil
}

func (c *MemoryClient) ListMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]models.Message(nil), c.messages[conversationID]...), nil
}

func (c *MemoryClient) ListActiveFAQs(_ context.Context) ([]models.FAQ, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.FAQ
	for _, f := range c.faqs {
		if f.IsActive {
			out = append(out, cloneFAQ(f))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (c *MemoryClient) IncrementFAQUsage(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.faqIndex(id)
	if i < 0 {
		return fmt.Errorf("faq %s: %w", id, core.ErrNotFound)
	}
	c.faqs[i].UsageCount++
	return nil
}

func (c *MemoryClient) GetFAQ(_ context.Context, id string) (*models.FAQ, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.faqIndex(id); i >= 0 {
		out := cloneFAQ(c.faqs[i])
		return &out, nil
	}
	return nil, nil
}

func (c *MemoryClient) CreateFAQ(_ context.Context, faq *models.FAQ) error {
	if faq == nil {
		return errors.New("nil faq")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if faq.ID == "" {
		faq.ID = uuid.NewString()
	}
	now := c.tick()
	faq.CreatedAt, faq.UpdatedAt = now, now
	faq.UsageCount = 0
	c.faqs = append(c.faqs, cloneFAQ(*faq))
	return nil
}

func (c *MemoryClient) UpdateFAQ(_ context.Context, id string, patch models.FAQPatch) (*models.FAQ, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.faqIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("faq %s: %w", id, core.ErrNotFound)
	}
	f := &c.faqs[i]
	if patch.Question != nil {
		f.Question = *patch.Question
	}
	if patch.Answer != nil {
		f.Answer = *patch.Answer
	}
	if patch.Keywords != nil {
		f.Keywords = append([]string(nil), (*patch.Keywords)...)
	}
	if patch.Category != nil {
		f.Category = *patch.Category
	}
	if patch.Priority != nil {
		f.Priority = *patch.Priority
	}
	if patch.IsActive != nil {
		f.IsActive = *patch.IsActive
	}
	f.UpdatedAt = c.tick()

	out := cloneFAQ(*f)
	return &out, nil
}

func (c *MemoryClient) DeleteFAQ(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.faqIndex(id)
	if i < 0 {
		return fmt.Errorf("faq %s: %w", id, core.ErrNotFound)
	}
	c.faqs = append(c.faqs[:i], c.faqs[i+1:]...)
	return nil
}

func (c *MemoryClient) conversationIndex(id string) int {
	for i := range c.conversations {
		if c.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *MemoryClient) faqIndex(id string) int {
	for i := range c.faqs {
		if c.faqs[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneConversation(conv models.Conversation) models.Conversation {
	conv.Metadata = cloneMap(conv.Metadata)
	return conv
}

func cloneFAQ(f models.FAQ) models.FAQ {
	f.Keywords = append([]string(nil), f.Keywords...)
	return f
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
