package subscription

import (
	"time"

	"github.com/chatmeter/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Tier identifies the subscription plan level
type Tier string

const (
	// TierBasic is the entry-level metered plan
	TierBasic Tier = "BASIC"

	// TierPro is the larger metered plan
	TierPro Tier = "PRO"

	// TierEnterprise is the unmetered plan; message usage is never counted against it
	TierEnterprise Tier = "ENTERPRISE"
)

// String returns the string representation of Tier
func (t Tier) String() string {
	return string(t)
}

// IsValid returns true if the tier is one of the known plan levels
func (t Tier) IsValid() bool {
	switch t {
	case TierBasic, TierPro, TierEnterprise:
		return true
	}
	return false
}

// ParseTier converts a raw string into a Tier
func ParseTier(s string) (Tier, error) {
	tier := Tier(s)
	if !tier.IsValid() {
		return "", ErrUnsupportedTier
	}
	return tier, nil
}

// BillingCycle is the recurring period after which a bundle must renew
type BillingCycle string

const (
	// BillingCycleMonthly renews every calendar month
	BillingCycleMonthly BillingCycle = "MONTHLY"

	// BillingCycleYearly renews every calendar year
	BillingCycleYearly BillingCycle = "YEARLY"
)

// String returns the string representation of BillingCycle
func (c BillingCycle) String() string {
	return string(c)
}

// IsValid returns true if the billing cycle is known
func (c BillingCycle) IsValid() bool {
	switch c {
	case BillingCycleMonthly, BillingCycleYearly:
		return true
	}
	return false
}

// ParseBillingCycle converts a raw string into a BillingCycle
func ParseBillingCycle(s string) (BillingCycle, error) {
	cycle := BillingCycle(s)
	if !cycle.IsValid() {
		return "", shared.NewDomainError("INVALID_INPUT", "Invalid billing cycle")
	}
	return cycle, nil
}

// Advance returns the end of one billing period starting at from.
// Monthly cycles add one calendar month, yearly cycles one calendar year.
func (c BillingCycle) Advance(from time.Time) time.Time {
	if c == BillingCycleYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// PaymentStatus tracks the billing state of a bundle
type PaymentStatus string

const (
	// PaymentStatusPending is the initial state before the first charge settles
	PaymentStatusPending PaymentStatus = "PENDING"

	// PaymentStatusActive means the current period is paid for
	PaymentStatusActive PaymentStatus = "ACTIVE"

	// PaymentStatusPastDue means the last renewal attempt failed; auto-renew is
	// cleared and no further automatic renewal is attempted
	PaymentStatusPastDue PaymentStatus = "PAST_DUE"

	// PaymentStatusCanceled is terminal; there is no transition out of it
	PaymentStatusCanceled PaymentStatus = "CANCELED"
)

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// Domain errors for subscription operations
var (
	ErrUnsupportedTier          = shared.NewDomainError("UNSUPPORTED_TIER", "Unsupported subscription tier")
	ErrSubscriptionNotFound     = shared.NewDomainError("SUBSCRIPTION_NOT_FOUND", "Subscription not found")
	ErrSubscriptionUserMismatch = shared.NewDomainError("SUBSCRIPTION_USER_MISMATCH", "Subscription does not belong to user")
)

// Bundle is a purchased quota allotment. Non-enterprise bundles carry a finite
// message cap drawn down against the user's shared monthly counter; enterprise
// bundles are unmetered.
//
// Bundle state transitions are pure: Canceled, Renewed and RenewalFailed
// return the next state and leave the receiver untouched. Persisting the new
// state is the storage adapter's job.
type Bundle struct {
	shared.BaseAggregateRoot
	UserID             string
	Tier               Tier
	BillingCycle       BillingCycle
	PaymentStatus      PaymentStatus
	MaxMessages        *int64 // nil = unlimited, meaningful only for ENTERPRISE
	UsedMessages       int64  // bookkeeping counter, reset on successful renewal
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	RenewalDate        time.Time
	Active             bool
	AutoRenew          bool
	Price              decimal.Decimal
	CanceledAt         *time.Time
}

// NewBundleInput carries the caller-supplied fields for a new bundle
type NewBundleInput struct {
	UserID       string
	Tier         Tier
	BillingCycle BillingCycle
	MaxMessages  *int64
	Price        decimal.Decimal
	AutoRenew    bool
	StartDate    time.Time
}

// NewBundle creates a bundle whose first period starts at input.StartDate and
// ends one billing-cycle unit later. New bundles are immediately ACTIVE.
func NewBundle(input NewBundleInput) (*Bundle, error) {
	if input.UserID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "User ID cannot be empty")
	}
	if !input.Tier.IsValid() {
		return nil, ErrUnsupportedTier
	}
	if !input.BillingCycle.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid billing cycle")
	}
	if input.MaxMessages != nil && *input.MaxMessages <= 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Message cap must be positive")
	}
	if input.Price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Price cannot be negative")
	}

	end := input.BillingCycle.Advance(input.StartDate)

	return &Bundle{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		UserID:             input.UserID,
		Tier:               input.Tier,
		BillingCycle:       input.BillingCycle,
		PaymentStatus:      PaymentStatusActive,
		MaxMessages:        input.MaxMessages,
		CurrentPeriodStart: input.StartDate,
		CurrentPeriodEnd:   end,
		RenewalDate:        end,
		Active:             true,
		AutoRenew:          input.AutoRenew,
		Price:              input.Price,
	}, nil
}

// IsMetered returns true if usage against this bundle decrements a counter.
// Only enterprise bundles are unmetered.
func (b *Bundle) IsMetered() bool {
	return b.Tier != TierEnterprise
}

// IsUnlimited returns true if the bundle carries no message cap
func (b *Bundle) IsUnlimited() bool {
	return b.MaxMessages == nil
}

// IsActiveAt reports whether the bundle can back message allocation at the
// given instant: paid up, not canceled, and now within [start, end).
func (b *Bundle) IsActiveAt(now time.Time) bool {
	if b.PaymentStatus != PaymentStatusActive || b.CanceledAt != nil {
		return false
	}
	return !now.Before(b.CurrentPeriodStart) && now.Before(b.CurrentPeriodEnd)
}

// RemainingMessages returns how many messages the bundle can still absorb
// given the user's shared monthly total. Returns nil for unlimited or
// enterprise bundles.
func (b *Bundle) RemainingMessages(totalUsed int64) *int64 {
	if b.IsUnlimited() || !b.IsMetered() {
		return nil
	}
	remaining := *b.MaxMessages - totalUsed
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// Canceled returns the terminal canceled state of the bundle
func (b *Bundle) Canceled(now time.Time) *Bundle {
	next := *b
	next.Active = false
	next.AutoRenew = false
	next.PaymentStatus = PaymentStatusCanceled
	canceledAt := now
	next.CanceledAt = &canceledAt
	next.UpdatedAt = now
	return &next
}

// Renewed returns the bundle state after a successful renewal: the period is
// advanced, the bundle's own usage counter is reset and the bundle is ACTIVE
// again.
func (b *Bundle) Renewed(now, newStart, newEnd time.Time) *Bundle {
	next := *b
	next.CurrentPeriodStart = newStart
	next.CurrentPeriodEnd = newEnd
	next.RenewalDate = newEnd
	next.UsedMessages = 0
	next.Active = true
	next.PaymentStatus = PaymentStatusActive
	next.UpdatedAt = now
	return &next
}

// RenewalFailed returns the bundle state after a failed renewal. The period is
// frozen, auto-renew is cleared and the bundle goes PAST_DUE.
func (b *Bundle) RenewalFailed(now time.Time) *Bundle {
	next := *b
	next.PaymentStatus = PaymentStatusPastDue
	next.Active = false
	next.AutoRenew = false
	next.UpdatedAt = now
	return &next
}
