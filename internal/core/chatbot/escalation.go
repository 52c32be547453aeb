package chatbot

import (
	"strings"
	"unicode/utf8"
)

// ComplexMessageLength is the length, in runes, above which a complaint goes
// to a human.
const ComplexMessageLength = 200

// HandoffPhrases are requests for a person or signs the bot is not helping.
var HandoffPhrases = []string{
	"falar com atendente",
	"falar com humano",
	"falar com pessoa",
	"não entendi",
	"não resolve",
	"transferir",
	"gerente",
	"supervisor",
}

// ShouldEscalate reports whether the conversation must be handed to a human.
func ShouldEscalate(userMessage string, intent Intent) bool {
	if containsAny(strings.ToLower(userMessage), HandoffPhrases) {
		return true
	}
	return intent == IntentComplaint && utf8.RuneCountInString(userMessage) > ComplexMessageLength
}
