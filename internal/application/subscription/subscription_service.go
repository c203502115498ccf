package subscription

import (
	"context"
	"time"

	"github.com/chatmeter/backend/internal/domain/subscription"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateSubscriptionInput contains input for purchasing a bundle
type CreateSubscriptionInput struct {
	UserID       string
	Tier         string
	BillingCycle string
	MaxMessages  *int64
	Price        decimal.Decimal
	AutoRenew    *bool      // nil defaults to true
	StartDate    *time.Time // nil defaults to now
}

// SubscriptionDTO is the outward-facing view of a bundle
type SubscriptionDTO struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             string          `json:"user_id"`
	Tier               string          `json:"tier"`
	BillingCycle       string          `json:"billing_cycle"`
	PaymentStatus      string          `json:"payment_status"`
	MaxMessages        *int64          `json:"max_messages"`
	UsedMessages       int64           `json:"used_messages"`
	CurrentPeriodStart time.Time       `json:"current_period_start"`
	CurrentPeriodEnd   time.Time       `json:"current_period_end"`
	RenewalDate        time.Time       `json:"renewal_date"`
	Active             bool            `json:"active"`
	AutoRenew          bool            `json:"auto_renew"`
	Price              decimal.Decimal `json:"price"`
	CanceledAt         *time.Time      `json:"canceled_at,omitempty"`
}

// BillingRunResultDTO summarizes one billing cycle run
type BillingRunResultDTO struct {
	Processed  int                `json:"processed"`
	Successful []SubscriptionDTO  `json:"successful"`
	Failed     []FailedRenewalDTO `json:"failed"`
}

// FailedRenewalDTO pairs a failed subscription with the failure reason
type FailedRenewalDTO struct {
	Subscription SubscriptionDTO `json:"subscription"`
	Reason       string          `json:"reason"`
}

// SubscriptionService handles bundle purchase, cancellation and the periodic
// billing cycle.
type SubscriptionService struct {
	repo   subscription.Repository
	runner *subscription.BillingCycleRunner
	logger *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(
	repo subscription.Repository,
	runner *subscription.BillingCycleRunner,
	logger *zap.Logger,
) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{repo: repo, runner: runner, logger: logger}
}

// Create purchases a new bundle for the user. The bundle is immediately
// active; its first period runs one billing-cycle unit from the start date.
func (s *SubscriptionService) Create(ctx context.Context, input CreateSubscriptionInput) (*SubscriptionDTO, error) {
	tier, err := subscription.ParseTier(input.Tier)
	if err != nil {
		return nil, err
	}
	cycle, err := subscription.ParseBillingCycle(input.BillingCycle)
	if err != nil {
		return nil, err
	}

	start := time.Now().UTC()
	if input.StartDate != nil {
		start = input.StartDate.UTC()
	}
	autoRenew := true
	if input.AutoRenew != nil {
		autoRenew = *input.AutoRenew
	}

	bundle, err := subscription.NewBundle(subscription.NewBundleInput{
		UserID:       input.UserID,
		Tier:         tier,
		BillingCycle: cycle,
		MaxMessages:  input.MaxMessages,
		Price:        input.Price,
		AutoRenew:    autoRenew,
		StartDate:    start,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, bundle); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription created",
		zap.String("subscription_id", bundle.ID.String()),
		zap.String("user_id", bundle.UserID),
		zap.String("tier", bundle.Tier.String()),
		zap.String("billing_cycle", bundle.BillingCycle.String()))

	dto := toSubscriptionDTO(bundle)
	return &dto, nil
}

// Cancel stops the subscription immediately. Cancellation is terminal and
// idempotent in effect; an already canceled bundle reports not found because
// it no longer backs allocation.
func (s *SubscriptionService) Cancel(ctx context.Context, userID string, id uuid.UUID) (*SubscriptionDTO, error) {
	bundle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, subscription.ErrSubscriptionNotFound
	}
	if bundle.UserID != userID {
		return nil, subscription.ErrSubscriptionUserMismatch
	}

	now := time.Now().UTC()
	if !bundle.IsActiveAt(now) {
		return nil, subscription.ErrSubscriptionNotFound
	}

	canceled := bundle.Canceled(now)
	if err := s.repo.Save(ctx, canceled); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription canceled",
		zap.String("subscription_id", id.String()),
		zap.String("user_id", userID))

	dto := toSubscriptionDTO(canceled)
	return &dto, nil
}

// RunBillingCycle renews every due bundle as of now and persists both
// outcomes. Each bundle is processed independently; one failed renewal does
// not stop the run.
func (s *SubscriptionService) RunBillingCycle(ctx context.Context, now time.Time) (*BillingRunResultDTO, error) {
	due, err := s.repo.FindDue(ctx, now)
	if err != nil {
		return nil, err
	}

	result := s.runner.Run(due, now)

	renewed := make([]SubscriptionDTO, 0, len(result.Successful))
	for _, bundle := range result.Successful {
		if err := s.repo.Save(ctx, bundle); err != nil {
			return nil, err
		}
		renewed = append(renewed, toSubscriptionDTO(bundle))
	}

	failed := make([]FailedRenewalDTO, 0, len(result.Failed))
	for _, fr := range result.Failed {
		if err := s.repo.Save(ctx, fr.Bundle); err != nil {
			return nil, err
		}
		failed = append(failed, FailedRenewalDTO{
			Subscription: toSubscriptionDTO(fr.Bundle),
			Reason:       fr.Reason,
		})
	}

	s.logger.Info("Billing cycle completed",
		zap.Int("processed", len(due)),
		zap.Int("renewed", len(renewed)),
		zap.Int("failed", len(failed)))

	return &BillingRunResultDTO{
		Processed:  len(due),
		Successful: renewed,
		Failed:     failed,
	}, nil
}

func toSubscriptionDTO(b *subscription.Bundle) SubscriptionDTO {
	return SubscriptionDTO{
		ID:                 b.ID,
		UserID:             b.UserID,
		Tier:               b.Tier.String(),
		BillingCycle:       b.BillingCycle.String(),
		PaymentStatus:      b.PaymentStatus.String(),
		MaxMessages:        b.MaxMessages,
		UsedMessages:       b.UsedMessages,
		CurrentPeriodStart: b.CurrentPeriodStart,
		CurrentPeriodEnd:   b.CurrentPeriodEnd,
		RenewalDate:        b.RenewalDate,
		Active:             b.Active,
		AutoRenew:          b.AutoRenew,
		Price:              b.Price,
		CanceledAt:         b.CanceledAt,
	}
}
