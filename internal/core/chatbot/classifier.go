package chatbot

import "strings"

// Intent is the coarse purpose detected in a user message.
type Intent string

const (
	IntentGreeting  Intent = "greeting"
	IntentQuestion  Intent = "question"
	IntentComplaint Intent = "complaint"
	IntentPraise    Intent = "praise"
	IntentRequest   Intent = "request"
	IntentFarewell  Intent = "farewell"
	IntentGeneral   Intent = "general"

	// IntentFAQ tags replies taken from a knowledge-base entry.
	IntentFAQ Intent = "faq"
	// IntentError tags the canned reply used when generation fails.
	IntentError Intent = "error"
)

// Sentiment is the polarity detected in a user message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

type intentKeywords struct {
	intent   Intent
	keywords []string
}

// Evaluated in order; the first intent with any keyword hit wins.
var intentTable = []intentKeywords{
	{IntentGreeting, []string{"olá", "oi", "bom dia", "boa tarde", "boa noite", "hey"}},
	{IntentQuestion, []string{"como", "quando", "onde", "qual", "quem", "por que", "?"}},
	{IntentComplaint, []string{"problema", "reclamação", "ruim", "péssimo", "não funciona", "erro"}},
	{IntentPraise, []string{"obrigado", "obrigada", "excelente", "ótimo", "parabéns", "muito bom"}},
	{IntentRequest, []string{"preciso", "quero", "gostaria", "pode", "consegue", "solicito"}},
	{IntentFarewell, []string{"tchau", "até logo", "obrigado", "valeu", "bye"}},
}

var (
	positiveWords = []string{"bom", "ótimo", "excelente", "feliz", "obrigado", "parabéns"}
	negativeWords = []string{"ruim", "péssimo", "problema", "erro", "não funciona", "reclamação"}
)

// ClassifyIntent returns the first intent whose keywords appear in text,
// or IntentGeneral.
func ClassifyIntent(text string) Intent {
	lower := strings.ToLower(text)
	for _, entry := range intentTable {
		if containsAny(lower, entry.keywords) {
			return entry.intent
		}
	}
	return IntentGeneral
}

// ClassifySentiment compares positive and negative word hits.
func ClassifySentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	pos := countHits(lower, positiveWords)
	neg := countHits(lower, negativeWords)

	switch {
	case pos > neg:
		return SentimentPositive
	case neg > pos:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func countHits(s string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(s, w) {
			n++
		}
	}
	return n
}
