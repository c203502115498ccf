package chat

import (
	"context"
	"time"

	"github.com/chatmeter/backend/internal/domain/shared"
)

// Message is one logged chat exchange. The log is a write-only audit sink;
// nothing in the quota engines reads it back.
type Message struct {
	shared.BaseEntity
	UserID  string
	Content string
}

// NewMessage creates a chat log entry stamped at the given instant
func NewMessage(userID, content string, now time.Time) *Message {
	msg := &Message{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		Content:    content,
	}
	msg.CreatedAt = now
	msg.UpdatedAt = now
	return msg
}

// MessageRepository is the storage port for the chat message log
type MessageRepository interface {
	// Append persists a new log entry
	Append(ctx context.Context, message *Message) error
}
