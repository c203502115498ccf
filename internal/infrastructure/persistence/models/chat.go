package models

import (
	"github.com/chatmeter/backend/internal/domain/chat"
)

// MonthlyUsageModel is the persistence model for monthly usage counters.
// The unique index enforces one record per user and calendar month.
type MonthlyUsageModel struct {
	AggregateModel
	UserID       string `gorm:"not null;uniqueIndex:idx_usage_user_month"`
	Year         int    `gorm:"not null;uniqueIndex:idx_usage_user_month"`
	Month        int    `gorm:"not null;uniqueIndex:idx_usage_user_month"`
	UsedMessages int64  `gorm:"not null;default:0"`
	MaxMessages  *int64
}

// TableName specifies the table name for MonthlyUsageModel
func (MonthlyUsageModel) TableName() string {
	return "monthly_usages"
}

// ToDomain converts MonthlyUsageModel to domain MonthlyUsage
func (m *MonthlyUsageModel) ToDomain() *chat.MonthlyUsage {
	return &chat.MonthlyUsage{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		UserID:            m.UserID,
		Year:              m.Year,
		Month:             m.Month,
		UsedMessages:      m.UsedMessages,
		MaxMessages:       m.MaxMessages,
	}
}

// MonthlyUsageModelFromDomain converts domain MonthlyUsage to MonthlyUsageModel
func MonthlyUsageModelFromDomain(u *chat.MonthlyUsage) *MonthlyUsageModel {
	model := &MonthlyUsageModel{
		UserID:       u.UserID,
		Year:         u.Year,
		Month:        u.Month,
		UsedMessages: u.UsedMessages,
		MaxMessages:  u.MaxMessages,
	}
	model.FromDomainAggregateRoot(u.BaseAggregateRoot)
	return model
}

// ChatMessageModel is the persistence model for the chat transcript log
type ChatMessageModel struct {
	BaseModel
	UserID  string `gorm:"not null;index"`
	Content string `gorm:"type:text;not null"`
}

// TableName specifies the table name for ChatMessageModel
func (ChatMessageModel) TableName() string {
	return "chat_messages"
}

// ToDomain converts ChatMessageModel to domain Message
func (m *ChatMessageModel) ToDomain() *chat.Message {
	return &chat.Message{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,
		Content:    m.Content,
	}
}

// ChatMessageModelFromDomain converts domain Message to ChatMessageModel
func ChatMessageModelFromDomain(msg *chat.Message) *ChatMessageModel {
	model := &ChatMessageModel{
		UserID:  msg.UserID,
		Content: msg.Content,
	}
	model.FromDomainBaseEntity(msg.BaseEntity)
	return model
}
