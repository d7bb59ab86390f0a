package llm

import (
	"context"
	"errors"
)

// openAIMessage is shared by OpenAI and Groq, which speak the same wire format.
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (g *Gateway) completeOpenAI(ctx context.Context, baseURL string, cfg Config, history []Turn, userText string) (string, error) {
	messages := make([]openAIMessage, 0, len(history)+2)
	messages = append(messages, openAIMessage{Role: "system", Content: SystemPrompt})
	for _, t := range history {
		messages = append(messages, openAIMessage{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: userText})

	reqBody := openAIRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: 0.8,
		MaxTokens:   500,
	}

	var resp openAIResponse
	headers := map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	if err := g.postJSON(ctx, baseURL+"/chat/completions", headers, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
