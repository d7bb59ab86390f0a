package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"biblegpt.app/companion/internal/llm"
	"biblegpt.app/companion/internal/store"
)

var ErrEmptyMessage = errors.New("message content is required")

// Responder produces the assistant's answer. *llm.Gateway satisfies it.
type Responder interface {
	GetResponse(ctx context.Context, userText string, history []llm.Turn) llm.Reply
}

// Exchange is the result of one user turn.
type Exchange struct {
	UserMessage      store.ChatMessage `json:"user_message"`
	AssistantMessage store.ChatMessage `json:"assistant_message"`
	Source           llm.Source        `json:"source"`
}

type ChatService struct {
	dbStore   *store.SQLiteStore
	responder Responder
	logger    *zap.Logger
}

func NewChatService(db *store.SQLiteStore, responder Responder, logger *zap.Logger) *ChatService {
	return &ChatService{dbStore: db, responder: responder, logger: logger}
}

// SendMessage asks the responder with the recent transcript as context and
// stores the user's message together with the answer. Nothing is stored if
// the exchange cannot be written in full.
func (s *ChatService) SendMessage(ctx context.Context, content string) (*Exchange, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	previous, err := s.dbStore.LastMessages(llm.MaxHistoryTurns)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	history := make([]llm.Turn, 0, len(previous))
	for _, m := range previous {
		history = append(history, llm.Turn{Role: m.Role, Content: m.Content})
	}

	reply := s.responder.GetResponse(ctx, content, history)

	userMsg, assistantMsg, err := s.dbStore.AppendExchange(content, reply.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to store chat exchange: %w", err)
	}

	s.logger.Debug("Chat turn completed",
		zap.String("source", string(reply.Source)),
		zap.Int("history_turns", len(history)))

	return &Exchange{
		UserMessage:      *userMsg,
		AssistantMessage: *assistantMsg,
		Source:           reply.Source,
	}, nil
}

func (s *ChatService) History() ([]store.ChatMessage, error) {
	messages, err := s.dbStore.ListHistory()
	if err != nil {
		return nil, fmt.Errorf("failed to list chat history: %w", err)
	}
	return messages, nil
}

func (s *ChatService) ClearHistory() error {
	if err := s.dbStore.ClearHistory(); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}
