package persistence

import (
	"context"

	"github.com/chatmeter/backend/internal/domain/chat"
	"github.com/chatmeter/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormChatMessageRepository implements chat.MessageRepository using GORM
type GormChatMessageRepository struct {
	db *gorm.DB
}

// NewGormChatMessageRepository creates a new GormChatMessageRepository
func NewGormChatMessageRepository(db *gorm.DB) *GormChatMessageRepository {
	return &GormChatMessageRepository{db: db}
}

// Append persists a new chat log entry
func (r *GormChatMessageRepository) Append(ctx context.Context, message *chat.Message) error {
	model := models.ChatMessageModelFromDomain(message)
	return r.db.WithContext(ctx).Create(model).Error
}
