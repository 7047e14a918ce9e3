// Package scoring provides the rule-based fraud scoring and reserve
// estimation engines. Both are kept behind small strategy interfaces so a
// trained statistical model can replace them without touching the
// prediction orchestrator.
package scoring

import (
	"github.com/opensource-insurance/harrier/internal/domain"
)

// ModelVersion identifies the serving strategy on stored predictions.
const ModelVersion = "rule-based"

// FraudThreshold is the classification cutoff. Strict inequality: a score
// of exactly 0.5 is not fraudulent.
const FraudThreshold = 0.5

// FraudScorer maps claim features to a fraud assessment.
type FraudScorer interface {
	ScoreFraud(amount float64, claimType domain.ClaimType, age int) domain.FraudAssessment
}

// RuleBasedFraudScorer implements the fixed additive point system.
// Each rule contributes an independent increment; the sum is clamped to
// [0, 1]. Unrecognized claim types simply contribute nothing from the
// type-sensitive rules.
type RuleBasedFraudScorer struct{}

// NewFraudScorer returns the rule-based fraud scorer.
func NewFraudScorer() *RuleBasedFraudScorer {
	return &RuleBasedFraudScorer{}
}

// ScoreFraud computes the fraud score for a claim.
func (s *RuleBasedFraudScorer) ScoreFraud(amount float64, claimType domain.ClaimType, age int) domain.FraudAssessment {
	score := 0.0

	// Rule 1: amount tier
	switch {
	case amount > 50000:
		score += 0.30
	case amount > 30000:
		score += 0.20
	case amount > 10000:
		score += 0.10
	}

	// Rule 2: high-risk line of business
	if claimType.IsHighRisk() {
		score += 0.15
	}

	// Rule 3: claimant age outlier
	if age < 25 || age > 70 {
		score += 0.15
	}

	// Rule 4: compound risk, stacks on top of the amount tier
	if amount > 40000 && claimType.IsHighRisk() {
		score += 0.20
	}

	if score > 1.0 {
		score = 1.0
	}

	return domain.FraudAssessment{
		FraudScore:   score,
		IsFraudulent: score > FraudThreshold,
	}
}
