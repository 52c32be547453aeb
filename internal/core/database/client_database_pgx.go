package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/zapdesk/internal/config"
	"github.com/markdave123-py/zapdesk/internal/core"
	"github.com/markdave123-py/zapdesk/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Agents

func (c *DatabaseClient) CreateAgent(ctx context.Context, agent *models.Agent) error {
	if agent == nil {
		return errors.New("nil agent")
	}
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO agents (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING created_at, updated_at
	`
	return c.db.QueryRowContext(ctx, q, agent.ID, agent.FirstName, agent.Email, agent.PasswordHash).
		Scan(&agent.CreatedAt, &agent.UpdatedAt)
}

func (c *DatabaseClient) GetAgentByEmail(ctx context.Context, email string) (*models.Agent, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM agents WHERE email = $1
	`
	var a models.Agent
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&a.ID, &a.FirstName, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Conversations

const conversationColumns = `id, phone_number, status, assigned_to, metadata, created_at, updated_at, transferred_at, closed_at, close_reason`

func scanConversation(s rowScanner, extra ...any) (*models.Conversation, error) {
	var (
		conv   models.Conversation
		status string
		meta   []byte
	)
	dest := []any{
		&conv.ID, &conv.PhoneNumber, &status, &conv.AssignedTo, &meta,
		&conv.CreatedAt, &conv.UpdatedAt, &conv.TransferredAt, &conv.ClosedAt, &conv.CloseReason,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	conv.Status = models.ConversationStatus(status)
	if err := decodeMap(meta, &conv.Metadata); err != nil {
		return nil, fmt.Errorf("decode conversation metadata: %w", err)
	}
	return &conv, nil
}

func (c *DatabaseClient) FindLatestConversationByPhone(ctx context.Context, phone string) (*models.Conversation, error) {
	q := `SELECT ` + conversationColumns + `
		FROM conversations
		WHERE phone_number = $1
		ORDER BY created_at DESC
		LIMIT 1`
	conv, err := scanConversation(c.db.QueryRowContext(ctx, q, phone))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return conv, err
}

func (c *DatabaseClient) CreateConversation(ctx context.Context, phone string, metadata map[string]any) (*models.Conversation, error) {
	meta, err := encodeJSON(metadata, "{}")
	if err != nil {
		return nil, fmt.Errorf("encode conversation metadata: %w", err)
	}
	q := `INSERT INTO conversations (id, phone_number, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING ` + conversationColumns
	return scanConversation(c.db.QueryRowContext(ctx, q, uuid.NewString(), phone, string(models.StatusActive), meta))
}

func (c *DatabaseClient) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	q := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	conv, err := scanConversation(c.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return conv, err
}

func (c *DatabaseClient) UpdateConversation(ctx context.Context, id string, patch models.ConversationPatch) (*models.Conversation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("conversation %s: %w", id, core.ErrNotFound)
	}
	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}
	expect := make([]string, 0, len(patch.ExpectStatus))
	for _, s := range patch.ExpectStatus {
		expect = append(expect, string(s))
	}
	q := `UPDATE conversations SET
			status         = COALESCE($2, status),
			assigned_to    = COALESCE($3, assigned_to),
			transferred_at = COALESCE($4, transferred_at),
			closed_at      = COALESCE($5, closed_at),
			close_reason   = COALESCE($6, close_reason),
			updated_at     = now()
		WHERE id = $1 AND (cardinality($7::text[]) = 0 OR status = ANY($7::text[]))
		RETURNING ` + conversationColumns
	conv, err := scanConversation(c.db.QueryRowContext(ctx, q,
		id, status, patch.AssignedTo, patch.TransferredAt, patch.ClosedAt, patch.CloseReason, expect,
	))
	if err != sql.ErrNoRows {
		return conv, err
	}

	var current string
	err = c.db.QueryRowContext(ctx, `SELECT status FROM conversations WHERE id = $1`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conversation %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("conversation %s is %s: %w", id, current, core.ErrStatusMismatch)
}

func (c *DatabaseClient) ListConversations(ctx context.Context, filter models.ConversationFilter, page, limit int) ([]models.Conversation, int, error) {
	const where = `WHERE ($1 = '' OR c.status = $1) AND ($2 = '' OR c.assigned_to = $2)`

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM conversations c `+where,
		string(filter.Status), filter.AssignedTo).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + prefixed("c.", conversationColumns) + `,
			(SELECT count(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c ` + where + `
		ORDER BY c.updated_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := c.db.QueryContext(ctx, q, string(filter.Status), filter.AssignedTo, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		var count int
		conv, err := scanConversation(rows, &count)
		if err != nil {
			return nil, 0, err
		}
		conv.MessageCount = count
		out = append(out, *conv)
	}
	return out, total, rows.Err()
}

// Messages

const messageColumns = `id, conversation_id, sender, text, message_type, intent, sentiment, metadata, created_at`

func scanMessage(s rowScanner) (*models.Message, error) {
	var (
		m      models.Message
		sender string
		meta   []byte
	)
	if err := s.Scan(&m.ID, &m.ConversationID, &sender, &m.Text, &m.Type, &m.Intent, &m.Sentiment, &meta, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Sender = models.Sender(sender)
	if err := decodeMap(meta, &m.Metadata); err != nil {
		return nil, fmt.Errorf("decode message metadata: %w", err)
	}
	return &m, nil
}

func (c *DatabaseClient) AppendMessage(ctx context.Context, conversationID string, msg *models.Message) (*models.Message, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}
	msgType := msg.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	meta, err := encodeJSON(msg.Metadata, "{}")
	if err != nil {
		return nil, fmt.Errorf("encode message metadata: %w", err)
	}
	q := `INSERT INTO messages (id, conversation_id, sender, text, message_type, intent, sentiment, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING ` + messageColumns
	return scanMessage(c.db.QueryRowContext(ctx, q,
		uuid.NewString(), conversationID, string(msg.Sender), msg.Text, msgType, msg.Intent, msg.Sentiment, meta,
	))
}

func (c *DatabaseClient) RecentMessages(ctx context.Context, conversationID string, n int) ([]models.Message, error) {
	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, nil
	}
	q := `SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`
	out, err := c.queryMessages(ctx, q, conversationID, n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (c *DatabaseClient) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, nil
	}
	q := `SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC`
	return c.queryMessages(ctx, q, conversationID)
}

func (c *DatabaseClient) queryMessages(ctx context.Context, q string, args ...any) ([]models.Message, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// FAQs

const faqColumns = `id, question, answer, keywords, category, priority, is_active, usage_count, created_at, updated_at`

func scanFAQ(s rowScanner) (*models.FAQ, error) {
	var (
		f  models.FAQ
		kw []byte
	)
	if err := s.Scan(&f.ID, &f.Question, &f.Answer, &kw, &f.Category, &f.Priority, &f.IsActive, &f.UsageCount, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if len(kw) > 0 {
		if err := json.Unmarshal(kw, &f.Keywords); err != nil {
			return nil, fmt.Errorf("decode faq keywords: %w", err)
		}
	}
	return &f, nil
}

func (c *DatabaseClient) ListActiveFAQs(ctx context.Context) ([]models.FAQ, error) {
	q := `SELECT ` + faqColumns + `
		FROM faqs
		WHERE is_active = TRUE
		ORDER BY priority DESC, created_at DESC`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FAQ
	for rows.Next() {
		f, err := scanFAQ(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) IncrementFAQUsage(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("faq %s: %w", id, core.ErrNotFound)
	}
	res, err := c.db.ExecContext(ctx, `UPDATE faqs SET usage_count = usage_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("faq %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (c *DatabaseClient) GetFAQ(ctx context.Context, id string) (*models.FAQ, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	f, err := scanFAQ(c.db.QueryRowContext(ctx, `SELECT `+faqColumns+` FROM faqs WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return f, err
}

func (c *DatabaseClient) CreateFAQ(ctx context.Context, faq *models.FAQ) error {
	if faq == nil {
		return errors.New("nil faq")
	}
	if faq.ID == "" {
		faq.ID = uuid.NewString()
	}
	kw, err := encodeJSON(faq.Keywords, "[]")
	if err != nil {
		return fmt.Errorf("encode faq keywords: %w", err)
	}
	const q = `
		INSERT INTO faqs (id, question, answer, keywords, category, priority, is_active, usage_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, now(), now())
		RETURNING usage_count, created_at, updated_at
	`
	return c.db.QueryRowContext(ctx, q,
		faq.ID, faq.Question, faq.Answer, kw, faq.Category, faq.Priority, faq.IsActive,
	).Scan(&faq.UsageCount, &faq.CreatedAt, &faq.UpdatedAt)
}

func (c *DatabaseClient) UpdateFAQ(ctx context.Context, id string, patch models.FAQPatch) (*models.FAQ, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("faq %s: %w", id, core.ErrNotFound)
	}
	var kw *string
	if patch.Keywords != nil {
		s, err := encodeJSON(*patch.Keywords, "[]")
		if err != nil {
			return nil, fmt.Errorf("encode faq keywords: %w", err)
		}
		kw = &s
	}
	q := `UPDATE faqs SET
			question   = COALESCE($2, question),
			answer     = COALESCE($3, answer),
			keywords   = COALESCE($4::jsonb, keywords),
			category   = COALESCE($5, category),
			priority   = COALESCE($6::integer, priority),
			is_active  = COALESCE($7::boolean, is_active),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + faqColumns
	f, err := scanFAQ(c.db.QueryRowContext(ctx, q,
		id, patch.Question, patch.Answer, kw, patch.Category, patch.Priority, patch.IsActive,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("faq %s: %w", id, core.ErrNotFound)
	}
	return f, err
}

func (c *DatabaseClient) DeleteFAQ(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("faq %s: %w", id, core.ErrNotFound)
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM faqs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("faq %s: %w", id, core.ErrNotFound)
	}
	return nil
}
