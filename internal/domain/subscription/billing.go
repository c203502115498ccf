package subscription

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRenewalSuccessRate is the probability a simulated renewal charge
// succeeds when no custom decider is supplied.
const DefaultRenewalSuccessRate = 0.8

// RenewalDecider decides whether a renewal charge for the given bundle
// succeeds. Production uses a random source; tests inject a deterministic one.
type RenewalDecider func(bundle *Bundle) bool

// RandomRenewalDecider returns a decider that succeeds with the given
// probability using the supplied random source. Draws are serialized, so the
// scheduler and the manual billing endpoint can share one decider; the
// rand.Rand must not be shared with other consumers.
func RandomRenewalDecider(successRate float64, rng *rand.Rand) RenewalDecider {
	var mu sync.Mutex
	return func(*Bundle) bool {
		mu.Lock()
		draw := rng.Float64()
		mu.Unlock()
		return draw < successRate
	}
}

// FailedRenewal pairs a bundle with the reason its renewal failed
type FailedRenewal struct {
	Bundle *Bundle
	Reason string
}

// BillingResult partitions a billing run's input: every processed bundle
// appears in exactly one of the two lists, in input order.
type BillingResult struct {
	Successful []*Bundle
	Failed     []FailedRenewal
}

// BillingCycleRunner decides renewal outcomes for due bundles and produces
// the next period's state. It does not select which bundles are due and it
// does not persist anything; callers own both.
type BillingCycleRunner struct {
	decide RenewalDecider
	logger *zap.Logger
}

// NewBillingCycleRunner creates a runner with the given decider. A nil
// decider falls back to the default random outcome.
func NewBillingCycleRunner(decide RenewalDecider, logger *zap.Logger) *BillingCycleRunner {
	if decide == nil {
		decide = RandomRenewalDecider(DefaultRenewalSuccessRate, rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingCycleRunner{decide: decide, logger: logger}
}

// Run processes each due bundle independently. On success the period advances
// to [max(periodEnd, now), +1 cycle unit); on failure the bundle goes
// PAST_DUE with auto-renew cleared. There is no retry within a run.
func (r *BillingCycleRunner) Run(due []*Bundle, now time.Time) BillingResult {
	result := BillingResult{
		Successful: make([]*Bundle, 0, len(due)),
		Failed:     make([]FailedRenewal, 0),
	}

	for _, bundle := range due {
		if r.decide(bundle) {
			newStart := r.nextPeriodStart(bundle, now)
			newEnd := bundle.BillingCycle.Advance(newStart)
			renewed := bundle.Renewed(now, newStart, newEnd)

			r.logger.Debug("Subscription renewed",
				zap.String("subscription_id", bundle.ID.String()),
				zap.String("user_id", bundle.UserID),
				zap.Time("period_start", newStart),
				zap.Time("period_end", newEnd))

			result.Successful = append(result.Successful, renewed)
			continue
		}

		failed := bundle.RenewalFailed(now)
		reason := "simulated payment failure"

		r.logger.Info("Subscription renewal failed",
			zap.String("subscription_id", bundle.ID.String()),
			zap.String("user_id", bundle.UserID),
			zap.String("reason", reason))

		result.Failed = append(result.Failed, FailedRenewal{Bundle: failed, Reason: reason})
	}

	return result
}

// nextPeriodStart picks the later of the elapsed period end and now, so a
// late billing run does not backdate the new period.
func (r *BillingCycleRunner) nextPeriodStart(bundle *Bundle, now time.Time) time.Time {
	if bundle.CurrentPeriodEnd.After(now) {
		return bundle.CurrentPeriodEnd
	}
	return now
}
