package ai

import (
	"context"

	"joeunedu/pkg/domain"
)

// ChatCompleter produces an assistant reply from a conversation history and
// a new user message. The hosted chat-completion provider implements this.
type ChatCompleter interface {
	Complete(ctx context.Context, history []domain.ChatMessage, userMessage string) (string, error)
}
