package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/disputehq/creditlens/internal/domain/letters"
	"github.com/disputehq/creditlens/internal/infra/ai/prompt"
)

const maxTokens = 2048

// Client generates dispute letters over the OpenAI chat completions API.
type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

func (c *Client) Generate(ctx context.Context, req letters.LetterRequest) (*letters.DisputeLetter, error) {
	model := c.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	chatReq := openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetLetterSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetLetterUserPrompt(req)},
		},
	}

	resp, err := c.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		if isQuotaError(err) {
			return nil, letters.ErrQuotaExceeded
		}
		return nil, fmt.Errorf("%w: %v", letters.ErrProviderUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, letters.ErrProviderUnavailable
	}

	var out letters.DisputeLetter
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("decode letter response: %w", err)
	}
	if out.Citations == nil {
		out.Citations = []string{}
	}
	if strings.TrimSpace(out.Body) == "" {
		return nil, letters.ErrProviderUnavailable
	}
	return &out, nil
}

func isQuotaError(err error) bool {
	e := strings.ToLower(err.Error())
	return strings.Contains(e, "quota") || strings.Contains(e, "429") || strings.Contains(e, "rate limit")
}
