package chatbot

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/zapdesk/internal/models"
)

// Relevance scoring constants. They are kept for compatibility with the
// existing knowledge base and can be tuned here.
const (
	KeywordScore       = 10
	QuestionWordScore  = 5
	MinQuestionWordLen = 3 // words must be longer than this to count
	FAQMatchThreshold  = 15
)

// ScoredFAQ is a knowledge-base entry with its relevance to one message.
type ScoredFAQ struct {
	FAQ   models.FAQ
	Score int
}

// MatchFAQs scores every entry against message and returns the ones with a
// positive score, highest first. Ties keep the input order.
func MatchFAQs(message string, entries []models.FAQ) []ScoredFAQ {
	lower := strings.ToLower(message)

	var out []ScoredFAQ
	for _, faq := range entries {
		if score := ScoreFAQ(lower, faq); score > 0 {
			out = append(out, ScoredFAQ{FAQ: faq, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// ScoreFAQ computes the relevance of faq for an already lowercased message.
func ScoreFAQ(lowerMessage string, faq models.FAQ) int {
	score := 0

	// Keywords match as stored, surrounding spaces included. Blank ones never match.
	for _, kw := range faq.Keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lowerMessage, kw) {
			score += KeywordScore
		}
	}

	for _, word := range strings.Split(strings.ToLower(faq.Question), " ") {
		if utf8.RuneCountInString(word) > MinQuestionWordLen && strings.Contains(lowerMessage, word) {
			score += QuestionWordScore
		}
	}

	return score
}

// BestMatch returns the top match when it is strong enough to answer without
// generation. matches must be ordered as MatchFAQs returns them.
func BestMatch(matches []ScoredFAQ) (ScoredFAQ, bool) {
	if len(matches) == 0 || matches[0].Score <= FAQMatchThreshold {
		return ScoredFAQ{}, false
	}
	return matches[0], true
}
