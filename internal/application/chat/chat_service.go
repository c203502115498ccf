package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/chatmeter/backend/internal/domain/chat"
	"github.com/chatmeter/backend/internal/domain/subscription"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AskQuestionInput contains input for asking a chat question
type AskQuestionInput struct {
	UserID   string
	Question string
}

// AskQuestionResult contains the answer and which quota bucket paid for it
type AskQuestionResult struct {
	Answer     string     `json:"answer"`
	TokenCount int        `json:"token_count"`
	UsageKind  string     `json:"usage_kind"`
	BundleID   *uuid.UUID `json:"bundle_id,omitempty"`
}

// BundleUsageDTO describes one active bundle in the usage summary
type BundleUsageDTO struct {
	BundleID          uuid.UUID `json:"bundle_id"`
	Tier              string    `json:"tier"`
	MaxMessages       *int64    `json:"max_messages"`
	RemainingMessages *int64    `json:"remaining_messages"` // null = unlimited
}

// UsageSummaryDTO is the per-user usage report for the current month
type UsageSummaryDTO struct {
	UserID        string           `json:"user_id"`
	Month         string           `json:"month"`
	TotalUsed     int64            `json:"total_used"`
	FreeQuota     int64            `json:"free_quota"`
	FreeUsed      int64            `json:"free_used"`
	FreeRemaining int64            `json:"free_remaining"`
	Bundles       []BundleUsageDTO `json:"bundles"`
}

// ChatService orchestrates one chat exchange: charge quota, generate the
// answer, log the transcript.
type ChatService struct {
	allocator        *chat.UsageAllocator
	generator        chat.AnswerGenerator
	messageRepo      chat.MessageRepository
	subscriptionRepo subscription.Repository
	logger           *zap.Logger
}

// NewChatService creates a new ChatService
func NewChatService(
	allocator *chat.UsageAllocator,
	generator chat.AnswerGenerator,
	messageRepo chat.MessageRepository,
	subscriptionRepo subscription.Repository,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		allocator:        allocator,
		generator:        generator,
		messageRepo:      messageRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

// AskQuestion charges the message against the user's quota, produces an
// answer and appends the exchange to the message log. Quota is charged
// before generation; a failed generation does not refund it.
func (s *ChatService) AskQuestion(ctx context.Context, input AskQuestionInput) (*AskQuestionResult, error) {
	now := time.Now().UTC()

	consumed, err := s.allocator.ConsumeMessage(ctx, input.UserID, now)
	if err != nil {
		return nil, err
	}

	answer, err := s.generator.Generate(ctx, input.Question)
	if err != nil {
		return nil, err
	}

	transcript := fmt.Sprintf("Q: %s\nA: %s", input.Question, answer.Text)
	message := chat.NewMessage(input.UserID, transcript, now)
	if err := s.messageRepo.Append(ctx, message); err != nil {
		return nil, err
	}

	s.logger.Info("Chat question answered",
		zap.String("user_id", input.UserID),
		zap.String("usage_kind", string(consumed.Descriptor.Kind)),
		zap.Int("token_count", answer.TokenCount),
		zap.Duration("latency", answer.Latency))

	return &AskQuestionResult{
		Answer:     answer.Text,
		TokenCount: answer.TokenCount,
		UsageKind:  string(consumed.Descriptor.Kind),
		BundleID:   consumed.Descriptor.BundleID,
	}, nil
}

// GetUsageSummary reports the user's consumption for the month containing
// now. Reading the summary never consumes quota; an untouched month shows a
// zeroed record.
func (s *ChatService) GetUsageSummary(ctx context.Context, userID string) (*UsageSummaryDTO, error) {
	now := time.Now().UTC()

	usage, err := s.allocator.ResolveMonthlyUsage(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	freeUsed := usage.UsedMessages
	if freeUsed > chat.FreeQuotaPerMonth {
		freeUsed = chat.FreeQuotaPerMonth
	}
	freeRemaining := int64(chat.FreeQuotaPerMonth) - freeUsed
	if freeRemaining < 0 {
		freeRemaining = 0
	}

	subs, err := s.subscriptionRepo.FindActive(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	bundles := make([]BundleUsageDTO, 0, len(subs))
	for _, sub := range subs {
		bundles = append(bundles, BundleUsageDTO{
			BundleID:          sub.ID,
			Tier:              sub.Tier.String(),
			MaxMessages:       sub.MaxMessages,
			RemainingMessages: sub.RemainingMessages(usage.UsedMessages),
		})
	}

	return &UsageSummaryDTO{
		UserID:        userID,
		Month:         usage.MonthKey(),
		TotalUsed:     usage.UsedMessages,
		FreeQuota:     chat.FreeQuotaPerMonth,
		FreeUsed:      freeUsed,
		FreeRemaining: freeRemaining,
		Bundles:       bundles,
	}, nil
}
