package llm

import (
	"context"
	"fmt"
	"log"

	openai "github.com/sashabaranov/go-openai"

	"github.com/markdave123-py/zapdesk/internal/core"
)

type OpenAILLM struct {
	client *openai.Client
	model  string
}

var _ core.TextGenerationBackend = (*OpenAILLM)(nil)

func NewOpenAILLM(apiKey, model string) (*OpenAILLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	log.Printf("[openai] using model %s", model)
	return &OpenAILLM{client: openai.NewClient(apiKey), model: model}, nil
}

func (c *OpenAILLM) Reply(ctx context.Context, history []core.Turn, message string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    openAIMessages(history, message),
		Temperature: Temperature,
		TopP:        TopP,
		MaxTokens:   int(MaxOutputTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		log.Println("[openai] empty choices")
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIMessages(history []core.Turn, message string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemInstruction,
	})
	for _, t := range history {
		role := openai.ChatMessageRoleAssistant
		if t.Role == core.RoleUser {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	return append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})
}
