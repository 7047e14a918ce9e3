package domain

import (
	"time"
)

// FraudAssessment is the output of the fraud scoring engine.
// IsFraudulent is derived from the score with a strict > 0.5 threshold,
// so a score of exactly 0.5 is not fraudulent.
type FraudAssessment struct {
	FraudScore   float64 `json:"fraudScore"`
	IsFraudulent bool    `json:"isFraudulent"`
}

// Prediction is the persisted result of scoring a single claim.
// At most one prediction exists per claim; re-predicting upserts.
type Prediction struct {
	ClaimID         string    `json:"claimId"`
	TenantID        string    `json:"tenantId"`
	FraudScore      float64   `json:"fraudScore"`
	IsFraudulent    bool      `json:"isFraudulent"`
	ReserveEstimate float64   `json:"reserveEstimate"`
	ModelVersion    string    `json:"modelVersion"`
	CreatedAt       time.Time `json:"createdAt"`

	// Rule results from supplemental screening rules, if any fired.
	RuleResults []RuleResult `json:"ruleResults,omitempty"`

	// Processing metadata
	Metadata PredictionMetadata `json:"metadata"`
}

// PredictionMetadata contains processing information.
type PredictionMetadata struct {
	TraceID        string `json:"traceId"`
	ScoringMs      int64  `json:"scoringMs"`
	TotalMs        int64  `json:"totalMs"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	EngineVersion  string `json:"engineVersion"`
}

// PredictionResponse is the API response for a claim prediction.
type PredictionResponse struct {
	ClaimID         string             `json:"claimId"`
	FraudScore      float64            `json:"fraudScore"`
	IsFraudulent    bool               `json:"isFraudulent"`
	ReserveEstimate float64            `json:"reserveEstimate"`
	ModelVersion    string             `json:"modelVersion"`
	Status          ClaimStatus        `json:"status"`
	Reasons         []string           `json:"reasons,omitempty"`
	Metadata        PredictionMetadata `json:"metadata"`
}

// ToResponse converts a Prediction to an API response.
func (p *Prediction) ToResponse(status ClaimStatus) *PredictionResponse {
	var reasons []string
	for _, r := range p.RuleResults {
		if r.Fired && r.Reason != "" {
			reasons = append(reasons, r.Reason)
		}
	}

	return &PredictionResponse{
		ClaimID:         p.ClaimID,
		FraudScore:      p.FraudScore,
		IsFraudulent:    p.IsFraudulent,
		ReserveEstimate: p.ReserveEstimate,
		ModelVersion:    p.ModelVersion,
		Status:          status,
		Reasons:         reasons,
		Metadata:        p.Metadata,
	}
}

// ModelInfo describes a registered scoring model.
// The serving path is rule-based only; trained statistical models would
// appear here once a strategy implementation backs them.
type ModelInfo struct {
	ID        int               `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"` // "fraud" or "reserve"
	Metrics   map[string]string `json:"metrics"`
	Status    string            `json:"status"`
	TrainedAt time.Time         `json:"trainedAt"`
}
