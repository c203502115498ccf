package chat

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/chatmeter/backend/internal/domain/shared"
	"github.com/chatmeter/backend/internal/domain/subscription"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FreeQuotaPerMonth is the number of messages every user gets for free each
// calendar month, regardless of subscriptions.
const FreeQuotaPerMonth = 3

// ErrQuotaExceeded means no free, bundle or enterprise allocation is
// available for the message.
var ErrQuotaExceeded = shared.NewDomainError("QUOTA_EXCEEDED", "Quota exceeded")

// UsageKind tags which quota bucket paid for a message
type UsageKind string

const (
	// UsageKindFree means the monthly free allowance absorbed the message
	UsageKindFree UsageKind = "free"

	// UsageKindBundle means a finite paid bundle absorbed the message
	UsageKindBundle UsageKind = "bundle"

	// UsageKindEnterprise means an unmetered enterprise subscription absorbed it
	UsageKindEnterprise UsageKind = "enterprise"
)

// UsageDescriptor reports which bucket paid for a message. Transient; callers
// use it for billing attribution, it is never persisted.
type UsageDescriptor struct {
	Kind     UsageKind
	BundleID *uuid.UUID // set for bundle and enterprise allocations
}

// ConsumeResult is the outcome of a successful allocation
type ConsumeResult struct {
	Descriptor UsageDescriptor
	Usage      *MonthlyUsage
}

// UsageAllocator decides which quota bucket pays for one chat message and
// updates the shared monthly counter accordingly.
//
// Allocation order is strict: the free allowance first, then the finite
// bundle with the most remaining capacity, then any enterprise subscription.
// Enterprise usage is unmetered and leaves the counter untouched.
type UsageAllocator struct {
	usageRepo        MonthlyUsageRepository
	subscriptionRepo subscription.Repository
	logger           *zap.Logger
}

// NewUsageAllocator creates a new UsageAllocator
func NewUsageAllocator(
	usageRepo MonthlyUsageRepository,
	subscriptionRepo subscription.Repository,
	logger *zap.Logger,
) *UsageAllocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageAllocator{
		usageRepo:        usageRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

// ConsumeMessage charges one message for the user at the given instant and
// returns which bucket paid for it, or ErrQuotaExceeded if nothing can.
func (a *UsageAllocator) ConsumeMessage(ctx context.Context, userID string, now time.Time) (*ConsumeResult, error) {
	usage, err := a.resolveMonthlyUsage(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	// The free allowance always goes first, even when paid bundles exist.
	if usage.UsedMessages < FreeQuotaPerMonth {
		if err := a.usageRepo.IncrementUsed(ctx, usage.ID); err != nil {
			return nil, err
		}
		updated := usage.WithIncrementedUsage(now)

		a.logger.Debug("Message charged to free quota",
			zap.String("user_id", userID),
			zap.String("month", usage.MonthKey()),
			zap.Int64("used_messages", updated.UsedMessages))

		return &ConsumeResult{
			Descriptor: UsageDescriptor{Kind: UsageKindFree},
			Usage:      updated,
		}, nil
	}

	subs, err := a.subscriptionRepo.FindActive(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrQuotaExceeded
	}

	if chosen := a.pickFiniteBundle(subs, usage.UsedMessages); chosen != nil {
		if err := a.usageRepo.IncrementUsed(ctx, usage.ID); err != nil {
			return nil, err
		}
		updated := usage.WithIncrementedUsage(now)

		bundleID := chosen.ID
		a.logger.Debug("Message charged to bundle",
			zap.String("user_id", userID),
			zap.String("bundle_id", bundleID.String()),
			zap.String("tier", chosen.Tier.String()),
			zap.Int64("used_messages", updated.UsedMessages))

		return &ConsumeResult{
			Descriptor: UsageDescriptor{Kind: UsageKindBundle, BundleID: &bundleID},
			Usage:      updated,
		}, nil
	}

	// Enterprise is unmetered: the shared counter stays put.
	for _, sub := range subs {
		if !sub.IsMetered() {
			bundleID := sub.ID
			a.logger.Debug("Message charged to enterprise subscription",
				zap.String("user_id", userID),
				zap.String("bundle_id", bundleID.String()))

			return &ConsumeResult{
				Descriptor: UsageDescriptor{Kind: UsageKindEnterprise, BundleID: &bundleID},
				Usage:      usage,
			}, nil
		}
	}

	return nil, ErrQuotaExceeded
}

// ResolveMonthlyUsage fetches the user's record for the month containing now,
// creating a zeroed one if the month has not been touched yet. Read paths
// (the usage summary) share this lazy-creation rule.
func (a *UsageAllocator) ResolveMonthlyUsage(ctx context.Context, userID string, now time.Time) (*MonthlyUsage, error) {
	return a.resolveMonthlyUsage(ctx, userID, now)
}

func (a *UsageAllocator) resolveMonthlyUsage(ctx context.Context, userID string, now time.Time) (*MonthlyUsage, error) {
	year, month := MonthOf(now)

	usage, err := a.usageRepo.FindByUserMonth(ctx, userID, year, month)
	if err == nil {
		return usage, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	usage, err = NewMonthlyUsage(userID, year, month)
	if err != nil {
		return nil, err
	}
	if err := a.usageRepo.Create(ctx, usage); err != nil {
		// Lost a create race; the record exists now, fetch it.
		if errors.Is(err, shared.ErrAlreadyExists) {
			return a.usageRepo.FindByUserMonth(ctx, userID, year, month)
		}
		return nil, err
	}
	return usage, nil
}

// pickFiniteBundle selects the metered bundle with the largest remaining
// capacity against the shared monthly total. Ties keep the earliest bundle
// in input order so the choice is deterministic. Returns nil when every
// metered bundle is exhausted.
//
// A metered bundle without a cap behaves as infinitely large and wins over
// any capped one.
func (a *UsageAllocator) pickFiniteBundle(subs []*subscription.Bundle, totalUsed int64) *subscription.Bundle {
	var chosen *subscription.Bundle
	var best int64

	for _, sub := range subs {
		if !sub.IsMetered() {
			continue
		}

		var remaining int64
		if sub.MaxMessages == nil {
			remaining = math.MaxInt64
		} else {
			remaining = *sub.MaxMessages - totalUsed
		}
		if remaining <= 0 {
			continue
		}
		if chosen == nil || remaining > best {
			chosen = sub
			best = remaining
		}
	}

	return chosen
}
