package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/zapdesk/internal/core"
	"github.com/markdave123-py/zapdesk/internal/models"
)

// Field bounds for knowledge-base entries.
const (
	QuestionMinLen  = 10
	QuestionMaxLen  = 500
	AnswerMinLen    = 10
	AnswerMaxLen    = 2000
	CategoryMaxLen  = 50
	PriorityMin     = 0
	PriorityMax     = 100
	DefaultCategory = "general"
)

// FAQInput is a new knowledge-base entry as submitted by an agent.
type FAQInput struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
	Category string   `json:"category"`
	Priority *int     `json:"priority"`
	IsActive *bool    `json:"is_active"`
}

type FAQService struct {
	db core.DbClient
}

func NewFAQService(db core.DbClient) *FAQService {
	return &FAQService{db: db}
}

// ListActive returns active entries, highest priority first, newest first on ties.
func (s *FAQService) ListActive(ctx context.Context) ([]models.FAQ, error) {
	faqs, err := s.db.ListActiveFAQs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	sort.SliceStable(faqs, func(i, j int) bool {
		if faqs[i].Priority != faqs[j].Priority {
			return faqs[i].Priority > faqs[j].Priority
		}
		return faqs[i].CreatedAt.After(faqs[j].CreatedAt)
	})
	if faqs == nil {
		faqs = []models.FAQ{}
	}
	return faqs, nil
}

func (s *FAQService) Get(ctx context.Context, id string) (*models.FAQ, error) {
	faq, err := s.db.GetFAQ(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get faq: %w", err)
	}
	if faq == nil {
		return nil, fmt.Errorf("faq %s: %w", id, core.ErrNotFound)
	}
	return faq, nil
}

func (s *FAQService) Create(ctx context.Context, in FAQInput) (*models.FAQ, error) {
	faq := &models.FAQ{
		Question: strings.TrimSpace(in.Question),
		Answer:   strings.TrimSpace(in.Answer),
		Keywords: cleanKeywords(in.Keywords),
		Category: strings.TrimSpace(in.Category),
		IsActive: true,
	}
	if faq.Category == "" {
		faq.Category = DefaultCategory
	}
	if in.Priority != nil {
		faq.Priority = *in.Priority
	}
	if in.IsActive != nil {
		faq.IsActive = *in.IsActive
	}

	verr := &ValidationError{}
	checkLen(verr, "question", faq.Question, QuestionMinLen, QuestionMaxLen)
	checkLen(verr, "answer", faq.Answer, AnswerMinLen, AnswerMaxLen)
	checkLen(verr, "category", faq.Category, 0, CategoryMaxLen)
	checkPriority(verr, faq.Priority)
	if err := verr.err(); err != nil {
		return nil, err
	}

	if err := s.db.CreateFAQ(ctx, faq); err != nil {
		return nil, fmt.Errorf("create faq: %w", err)
	}
	return faq, nil
}

// Update applies a partial edit. At least one field must be present.
func (s *FAQService) Update(ctx context.Context, id string, patch models.FAQPatch) (*models.FAQ, error) {
	verr := &ValidationError{}
	if patch.Empty() {
		verr.add("body", "at least one field must be provided")
		return nil, verr
	}
	if patch.Question != nil {
		q := strings.TrimSpace(*patch.Question)
		patch.Question = &q
		checkLen(verr, "question", q, QuestionMinLen, QuestionMaxLen)
	}
	if patch.Answer != nil {
		a := strings.TrimSpace(*patch.Answer)
		patch.Answer = &a
		checkLen(verr, "answer", a, AnswerMinLen, AnswerMaxLen)
	}
	if patch.Category != nil {
		c := strings.TrimSpace(*patch.Category)
		patch.Category = &c
		checkLen(verr, "category", c, 0, CategoryMaxLen)
	}
	if patch.Keywords != nil {
		kw := cleanKeywords(*patch.Keywords)
		patch.Keywords = &kw
	}
	if patch.Priority != nil {
		checkPriority(verr, *patch.Priority)
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	faq, err := s.db.UpdateFAQ(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update faq: %w", err)
	}
	return faq, nil
}

func (s *FAQService) Delete(ctx context.Context, id string) error {
	if err := s.db.DeleteFAQ(ctx, id); err != nil {
		return fmt.Errorf("delete faq: %w", err)
	}
	return nil
}

func checkLen(verr *ValidationError, field, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	switch {
	case n < min:
		verr.add(field, "must be at least %d characters", min)
	case n > max:
		verr.add(field, "must be at most %d characters", max)
	}
}

func checkPriority(verr *ValidationError, p int) {
	if p < PriorityMin || p > PriorityMax {
		verr.add("priority", "must be between %d and %d", PriorityMin, PriorityMax)
	}
}

// cleanKeywords trims keywords and drops blanks so they cannot match every message.
func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
