// Package predictor orchestrates the claim prediction pipeline: feature
// coercion, fraud scoring, supplemental screening rules, reserve
// estimation, persistence and event publication.
package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-insurance/harrier/internal/domain"
	"github.com/opensource-insurance/harrier/internal/history"
	"github.com/opensource-insurance/harrier/internal/repository"
	"github.com/opensource-insurance/harrier/internal/rules"
	"github.com/opensource-insurance/harrier/internal/scoring"
)

// EngineVersion is stamped on prediction metadata.
const EngineVersion = "harrier-1.0"

// predictionCacheTTL bounds staleness of cached predictions.
const predictionCacheTTL = 5 * time.Minute

// priorClaimsWindow is the lookback for claimant frequency enrichment.
const priorClaimsWindow = 365 * 24 * 3600 // seconds

// Predictor runs the prediction pipeline for a single claim.
type Predictor struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	engine    *rules.Engine
	history   *history.Service
	scorer    scoring.FraudScorer
	estimator scoring.ReserveEstimator
}

// New creates a predictor. cache, bus, engine and hist may be nil; the
// corresponding steps are skipped.
func New(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, hist *history.Service, scorer scoring.FraudScorer, estimator scoring.ReserveEstimator) *Predictor {
	return &Predictor{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		engine:    engine,
		history:   hist,
		scorer:    scorer,
		estimator: estimator,
	}
}

// Input identifies the claim to predict.
type Input struct {
	TenantID  string
	ClaimID   string
	TraceID   string
	StartTime time.Time
}

// Predict runs the full pipeline for one claim. The claim must already
// exist; re-predicting an already-predicted claim overwrites the stored
// prediction and re-derives the claim status.
func (p *Predictor) Predict(ctx context.Context, input *Input) (*domain.Prediction, error) {
	if input.StartTime.IsZero() {
		input.StartTime = time.Now()
	}

	claim, err := p.repo.GetClaim(ctx, input.TenantID, input.ClaimID)
	if err != nil {
		return nil, err
	}

	features, err := ExtractFeatures(claim)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
	}

	// Enrich with claimant frequency when extraction didn't supply it.
	// The current claim is already stored, so it is excluded from the
	// prior count.
	if p.history != nil && features.NumPriorClaims == 0 && claim.ClaimantID != "" {
		count, err := p.history.GetClaimCount(ctx, input.TenantID, claim.ClaimantID, priorClaimsWindow)
		if err != nil {
			slog.Warn("claimant history lookup failed",
				"claimant_id", claim.ClaimantID,
				"error", err,
			)
		} else if count > 1 {
			features.NumPriorClaims = int(count - 1)
		}
	}

	scoringStart := time.Now()

	base := p.scorer.ScoreFraud(features.ClaimAmount, features.ClaimType, features.ClaimantAge)
	score := base.FraudScore

	var ruleResults []domain.RuleResult
	if p.engine != nil && p.engine.RulesCount() > 0 {
		ruleResults, err = p.engine.EvaluateAll(ctx, &rules.EvaluateInput{
			TenantID:              input.TenantID,
			ClaimID:               claim.ID,
			ClaimAmount:           features.ClaimAmount,
			ClaimType:             features.ClaimType,
			ClaimantAge:           features.ClaimantAge,
			NumPriorClaims:        features.NumPriorClaims,
			PoliceReportAvailable: features.PoliceReportAvailable,
			AdditionalData:        claim.ExtractedData,
		})
		if err != nil {
			return nil, fmt.Errorf("screening rule evaluation failed: %w", err)
		}
		score += rules.TotalContribution(ruleResults)
	}

	if score > 1.0 {
		score = 1.0
	}
	isFraudulent := score > scoring.FraudThreshold

	reserve := p.estimator.EstimateReserve(features.ClaimAmount, features.ClaimType, isFraudulent)

	scoringMs := time.Since(scoringStart).Milliseconds()

	pred := &domain.Prediction{
		ClaimID:         claim.ID,
		TenantID:        input.TenantID,
		FraudScore:      score,
		IsFraudulent:    isFraudulent,
		ReserveEstimate: reserve,
		ModelVersion:    scoring.ModelVersion,
		CreatedAt:       time.Now().UTC(),
		RuleResults:     ruleResults,
		Metadata: domain.PredictionMetadata{
			TraceID:        input.TraceID,
			ScoringMs:      scoringMs,
			TotalMs:        time.Since(input.StartTime).Milliseconds(),
			RulesEvaluated: len(ruleResults),
			EngineVersion:  EngineVersion,
		},
	}

	if err := p.repo.SavePrediction(ctx, input.TenantID, pred); err != nil {
		return nil, fmt.Errorf("failed to save prediction: %w", err)
	}

	status := DeriveStatus(score)
	if err := p.repo.UpdateClaimStatus(ctx, input.TenantID, claim.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update claim status: %w", err)
	}

	if p.history != nil && claim.ClaimantID != "" {
		if _, err := p.history.RecordSubmission(ctx, input.TenantID, claim.ClaimantID, priorClaimsWindow*time.Second); err != nil {
			slog.Warn("failed to record claimant submission",
				"claimant_id", claim.ClaimantID,
				"error", err,
			)
		}
	}

	if p.cache != nil {
		if err := p.cache.SetPrediction(ctx, input.TenantID, claim.ID, pred, predictionCacheTTL); err != nil {
			slog.Warn("failed to cache prediction",
				"claim_id", claim.ID,
				"error", err,
			)
		}
	}

	p.publish(ctx, input.TenantID, pred)

	slog.Info("claim predicted",
		"claim_id", claim.ID,
		"tenant_id", input.TenantID,
		"fraud_score", score,
		"is_fraudulent", isFraudulent,
		"reserve", reserve,
		"status", status,
		"duration_ms", pred.Metadata.TotalMs,
	)

	return pred, nil
}

// DeriveStatus maps a final fraud score to the claim lifecycle state.
// Strict inequality, matching the classification threshold.
func DeriveStatus(score float64) domain.ClaimStatus {
	if score > scoring.FraudThreshold {
		return domain.StatusRejected
	}
	return domain.StatusApproved
}

func (p *Predictor) publish(ctx context.Context, tenantID string, pred *domain.Prediction) {
	if p.bus == nil {
		return
	}

	payload, _ := json.Marshal(pred)
	if err := p.bus.Publish(ctx, tenantID, domain.TopicPredictionCompleted, payload); err != nil {
		slog.Error("failed to publish prediction",
			"claim_id", pred.ClaimID,
			"error", err,
		)
	}

	if pred.IsFraudulent {
		if err := p.bus.Publish(ctx, tenantID, domain.TopicClaimFlagged, payload); err != nil {
			slog.Error("failed to publish flagged claim",
				"claim_id", pred.ClaimID,
				"error", err,
			)
		}
	}
}

// ExtractFeatures coerces a claim's extracted document fields into typed
// features. Upstream extraction emits loosely typed JSON, so numeric
// fields may arrive as numbers or as strings; both are accepted, and a
// string that does not parse is an error rather than a silent default.
func ExtractFeatures(claim *domain.Claim) (domain.ClaimFeatures, error) {
	data := claim.ExtractedData

	amount, found, err := coerceFloat(data, "claim_amount")
	if err != nil {
		return domain.ClaimFeatures{}, err
	}
	if !found {
		// Legacy extraction emits amount_claimed.
		amount, _, err = coerceFloat(data, "amount_claimed")
		if err != nil {
			return domain.ClaimFeatures{}, err
		}
	}

	claimType := claim.Type
	if raw, ok := stringField(data, "claim_type"); ok {
		parsed, err := domain.ParseClaimType(raw)
		if err != nil {
			return domain.ClaimFeatures{}, err
		}
		claimType = parsed
	}

	age, _, err := coerceInt(data, "claimant_age")
	if err != nil {
		return domain.ClaimFeatures{}, err
	}

	features, err := domain.NewClaimFeatures(amount, claimType, age)
	if err != nil {
		return domain.ClaimFeatures{}, err
	}

	// Optional fields for screening rules and reporting. These are
	// tolerant: a missing or malformed optional never blocks scoring.
	if v, ok, e := coerceFloat(data, "policy_deductible"); e == nil && ok {
		features.PolicyDeductible = v
	}
	if v, ok, e := coerceFloat(data, "policy_coverage_limit"); e == nil && ok {
		features.PolicyLimit = v
	}
	if v, ok, e := coerceFloat(data, "policy_annual_premium"); e == nil && ok {
		features.PolicyAnnualPremium = v
	}
	if v, ok := stringField(data, "incident_severity"); ok {
		features.IncidentSeverity = v
	}
	if v, ok, e := coerceInt(data, "num_prior_claims"); e == nil && ok {
		features.NumPriorClaims = v
	}
	if v, ok, e := coerceInt(data, "days_since_policy_inception"); e == nil && ok {
		features.DaysSincePolicyInception = v
	}
	if v, ok := stringField(data, "police_report_available"); ok {
		features.PoliceReportAvailable = strings.EqualFold(v, "yes") || strings.EqualFold(v, "true")
	} else if b, ok := data["police_report_available"].(bool); ok {
		features.PoliceReportAvailable = b
	}

	return features, nil
}

func coerceFloat(data map[string]interface{}, key string) (float64, bool, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return 0, false, nil
	}

	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("field %s: %w", key, err)
		}
		return f, true, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false, fmt.Errorf("field %s: cannot parse %q as number", key, v)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("field %s: unsupported type %T", key, raw)
	}
}

func coerceInt(data map[string]interface{}, key string) (int, bool, error) {
	f, ok, err := coerceFloat(data, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	return int(f), true, nil
}

func stringField(data map[string]interface{}, key string) (string, bool) {
	raw, ok := data[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return strings.TrimSpace(s), true
}
