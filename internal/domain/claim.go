package domain

import (
	"fmt"
	"strings"
	"time"
)

// ClaimType is the line of business a claim belongs to.
// Unrecognized types are rejected at the boundary; the scoring engines
// themselves treat anything they don't know as low-risk.
type ClaimType string

const (
	ClaimTypeAuto     ClaimType = "auto"
	ClaimTypeHealth   ClaimType = "health"
	ClaimTypeProperty ClaimType = "property"
	ClaimTypeHome     ClaimType = "home"
	ClaimTypeLife     ClaimType = "life"
)

// ParseClaimType converts a wire string to a ClaimType.
func ParseClaimType(s string) (ClaimType, error) {
	switch ClaimType(strings.ToLower(strings.TrimSpace(s))) {
	case ClaimTypeAuto:
		return ClaimTypeAuto, nil
	case ClaimTypeHealth:
		return ClaimTypeHealth, nil
	case ClaimTypeProperty:
		return ClaimTypeProperty, nil
	case ClaimTypeHome:
		return ClaimTypeHome, nil
	case ClaimTypeLife:
		return ClaimTypeLife, nil
	default:
		return "", fmt.Errorf("unknown claim type: %q", s)
	}
}

// IsHighRisk reports whether the line historically carries elevated fraud rates.
func (t ClaimType) IsHighRisk() bool {
	return t == ClaimTypeAuto || t == ClaimTypeProperty
}

// ClaimStatus is the lifecycle state of a claim.
type ClaimStatus string

const (
	StatusPending   ClaimStatus = "pending"
	StatusProcessed ClaimStatus = "processed"
	StatusApproved  ClaimStatus = "approved"
	StatusRejected  ClaimStatus = "rejected"
)

// ParseClaimStatus converts a wire string to a ClaimStatus.
func ParseClaimStatus(s string) (ClaimStatus, error) {
	switch ClaimStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusProcessed:
		return StatusProcessed, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("unknown claim status: %q", s)
	}
}

// Claim represents a submitted claim awaiting or holding a prediction.
type Claim struct {
	// Core identifiers
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`

	// ClaimantID links claims from the same claimant for frequency checks.
	ClaimantID string `json:"claimantId,omitempty"`

	// Line of business
	Type ClaimType `json:"type"`

	// Extracted document fields, as produced by the upstream extraction
	// service. Kept verbatim so the predictor can re-coerce them.
	ExtractedData map[string]interface{} `json:"extractedData,omitempty"`

	// Lifecycle
	Status    ClaimStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// ClaimFeatures is the validated, typed view of a claim's extracted fields.
// Optional fields carry their zero value when absent; the documented
// defaults (amount 0.0, type auto, age 35) are applied by NewClaimFeatures.
type ClaimFeatures struct {
	ClaimAmount float64   `json:"claimAmount"`
	ClaimType   ClaimType `json:"claimType"`
	ClaimantAge int       `json:"claimantAge"`

	// Optional line-specific attributes
	PolicyDeductible        float64 `json:"policyDeductible,omitempty"`
	PolicyLimit             float64 `json:"policyLimit,omitempty"`
	PolicyAnnualPremium     float64 `json:"policyAnnualPremium,omitempty"`
	IncidentSeverity        string  `json:"incidentSeverity,omitempty"`
	NumPriorClaims          int     `json:"numPriorClaims,omitempty"`
	DaysSincePolicyInception int    `json:"daysSincePolicyInception,omitempty"`
	PoliceReportAvailable   bool    `json:"policeReportAvailable,omitempty"`
}

// Feature defaults applied when the extraction service omits a field.
const (
	DefaultClaimAmount = 0.0
	DefaultClaimType   = ClaimTypeAuto
	DefaultClaimantAge = 35
)

// NewClaimFeatures builds validated features, applying defaults.
// claim_amount must be non-negative and claimant_age positive.
func NewClaimFeatures(amount float64, claimType ClaimType, age int) (ClaimFeatures, error) {
	if claimType == "" {
		claimType = DefaultClaimType
	}
	if age == 0 {
		age = DefaultClaimantAge
	}
	if amount < 0 {
		return ClaimFeatures{}, fmt.Errorf("claim_amount must be non-negative, got %f", amount)
	}
	if age <= 0 {
		return ClaimFeatures{}, fmt.Errorf("claimant_age must be positive, got %d", age)
	}
	return ClaimFeatures{
		ClaimAmount: amount,
		ClaimType:   claimType,
		ClaimantAge: age,
	}, nil
}

// ClaimRequest is the API request payload for claim submission.
type ClaimRequest struct {
	Type          string                 `json:"type"`
	ExtractedData map[string]interface{} `json:"extractedData"`
}

// ToClaim converts a request to a Claim domain object. The claimant
// identifier, when present in the extracted fields, is lifted to a
// first-class column so frequency checks can query it.
func (r *ClaimRequest) ToClaim() *Claim {
	now := time.Now().UTC()
	claim := &Claim{
		Type:          ClaimType(strings.ToLower(r.Type)),
		ExtractedData: r.ExtractedData,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if v, ok := r.ExtractedData["claimant_id"].(string); ok {
		claim.ClaimantID = strings.TrimSpace(v)
	}
	return claim
}
