package scoring

import (
	"math"
	"math/rand"
	"sync"

	"github.com/opensource-insurance/harrier/internal/domain"
)

// ReserveEstimator maps claim features and a fraud outcome to a reserve.
type ReserveEstimator interface {
	EstimateReserve(amount float64, claimType domain.ClaimType, isFraudulent bool) float64
}

// Base reserve multipliers by line of business. These encode actuarial
// priors; lines not in the table fall back to the default.
var reserveMultipliers = map[domain.ClaimType]float64{
	domain.ClaimTypeAuto:     0.75,
	domain.ClaimTypeHealth:   0.85,
	domain.ClaimTypeProperty: 0.70,
	domain.ClaimTypeHome:     0.70,
	domain.ClaimTypeLife:     0.90,
}

const (
	defaultReserveMultiplier = 0.70

	// Holdback applied when a claim is flagged: reserve less pending
	// investigation, not zero, to cover legitimate partial liability.
	fraudHoldback = 0.30

	// Jitter band for per-call variance.
	varianceLow  = 0.9
	varianceHigh = 1.1
)

// RuleBasedReserveEstimator implements the fixed multiplier table with a
// uniform [0.9, 1.1] variance factor. Repeated calls with identical input
// yield different reserves unless a seeded source is supplied; tests
// inject a seeded rand.Rand to pin outputs.
type RuleBasedReserveEstimator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewReserveEstimator returns an estimator using the given random source.
// A nil source gets a time-seeded one.
func NewReserveEstimator(rng *rand.Rand) *RuleBasedReserveEstimator {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &RuleBasedReserveEstimator{rng: rng}
}

// EstimateReserve computes the reserve for a claim, rounded to 2 decimals.
// The result is non-negative and, for non-pathological multipliers, at most
// the claim amount.
func (e *RuleBasedReserveEstimator) EstimateReserve(amount float64, claimType domain.ClaimType, isFraudulent bool) float64 {
	multiplier, ok := reserveMultipliers[claimType]
	if !ok {
		multiplier = defaultReserveMultiplier
	}

	if isFraudulent {
		multiplier *= fraudHoldback
	}

	e.mu.Lock()
	variance := varianceLow + e.rng.Float64()*(varianceHigh-varianceLow)
	e.mu.Unlock()

	reserve := amount * multiplier * variance
	return math.Round(reserve*100) / 100
}
