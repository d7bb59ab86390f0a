package llm

import (
	"context"
	"errors"
	"strings"
)

const anthropicVersion = "2023-06-01"

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (g *Gateway) completeAnthropic(ctx context.Context, baseURL string, cfg Config, history []Turn, userText string) (string, error) {
	messages := make([]anthropicMessage, 0, len(history)+1)
	for _, t := range history {
		messages = append(messages, anthropicMessage{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, anthropicMessage{Role: "user", Content: userText})

	reqBody := anthropicRequest{
		Model:     cfg.Model,
		MaxTokens: 512,
		System:    SystemPrompt,
		Messages:  messages,
	}

	var resp anthropicResponse
	headers := map[string]string{
		"x-api-key":         cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}
	if err := g.postJSON(ctx, baseURL+"/messages", headers, reqBody, &resp); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" || block.Type == "" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("no text content in messages response")
	}
	return text.String(), nil
}
