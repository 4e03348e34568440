// Package memory implements the supplemented conversational-memory
// feature (SPEC_FULL.md §5), grounded on original_source's
// memory_service.py: a thin service over the chat_messages collection used
// by the Semantic LLM Executor to build bounded context windows.
package memory

import (
	"context"
	"time"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/store"
)

// DefaultWindow is the default number of recent messages returned for an
// LLM context window.
const DefaultWindow = 20

// Service implements chat-message append/read.
type Service struct {
	repo *store.ChatRepository
}

// NewService wires a Service over repo.
func NewService(repo *store.ChatRepository) *Service {
	return &Service{repo: repo}
}

// AppendMessage records one turn of a conversation.
func (s *Service) AppendMessage(ctx context.Context, chatID, role, content string) error {
	if chatID == "" || content == "" {
		return errorsx.ValidationFailed(map[string]string{"chat_id/content": "required"})
	}
	msg := &store.ChatMessage{
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if err := s.repo.Append(ctx, msg); err != nil {
		return errorsx.InternalWrap(err)
	}
	return nil
}

// RecentMessages returns the last `limit` messages for chatID, oldest
// first, ready to seed an LLM prompt.
func (s *Service) RecentMessages(ctx context.Context, chatID string, limit int64) ([]store.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultWindow
	}
	msgs, err := s.repo.Recent(ctx, chatID, limit)
	if err != nil {
		return nil, errorsx.DependencyUnavailable("chat history lookup failed")
	}
	return msgs, nil
}
