package rules

import (
	"context"
	"testing"

	"github.com/opensource-insurance/harrier/internal/domain"
)

func TestEngineCreation(t *testing.T) {
	engine, err := NewEngine(5)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	defer engine.Close()

	if engine.RulesCount() != 0 {
		t.Errorf("expected 0 rules, got %d", engine.RulesCount())
	}
}

func TestLoadRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.ScreeningRule{
		ID:         "high-amount-no-report",
		Name:       "High amount without police report",
		Expression: "claim_amount > 20000.0 && !police_report_available",
		Weight:     0.10,
		Enabled:    true,
	}

	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule, got %d", engine.RulesCount())
	}
}

func TestLoadInvalidRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	tests := []struct {
		name string
		rule *domain.ScreeningRule
	}{
		{
			"bad syntax",
			&domain.ScreeningRule{
				ID:         "bad-syntax",
				Expression: "this is not valid CEL !!!",
				Weight:     0.1,
				Enabled:    true,
			},
		},
		{
			"string output",
			&domain.ScreeningRule{
				ID:         "string-output",
				Expression: `"not a score"`,
				Weight:     0.1,
				Enabled:    true,
			},
		},
		{
			"zero weight",
			&domain.ScreeningRule{
				ID:         "zero-weight",
				Expression: "claim_amount > 0.0",
				Weight:     0.0,
				Enabled:    true,
			},
		},
		{
			"weight above one",
			&domain.ScreeningRule{
				ID:         "heavy-weight",
				Expression: "claim_amount > 0.0",
				Weight:     1.5,
				Enabled:    true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := engine.LoadRule(tt.rule); err == nil {
				t.Error("expected error loading invalid rule")
			}
		})
	}

	if engine.RulesCount() != 0 {
		t.Errorf("invalid rules should not be loaded, got %d", engine.RulesCount())
	}
}

func TestEvaluateBooleanRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.ScreeningRule{
		ID:          "repeat-claimant",
		Name:        "Repeat claimant",
		Description: "Three or more prior claims",
		Expression:  "num_prior_claims >= 3",
		Weight:      0.15,
		Enabled:     true,
	}
	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	input := &EvaluateInput{
		TenantID:       "tenant-1",
		ClaimID:        "claim-1",
		ClaimAmount:    8000,
		ClaimType:      domain.ClaimTypeAuto,
		ClaimantAge:    40,
		NumPriorClaims: 4,
	}

	results, err := engine.EvaluateAll(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if !r.Fired {
		t.Error("expected rule to fire")
	}
	if r.Contribution != 0.15 {
		t.Errorf("contribution = %.2f, want 0.15", r.Contribution)
	}
	if r.Reason != "Three or more prior claims" {
		t.Errorf("unexpected reason %q", r.Reason)
	}

	// Same rule, below the prior-claim threshold
	input.NumPriorClaims = 1
	results, _ = engine.EvaluateAll(context.Background(), input)
	if results[0].Fired {
		t.Error("rule should not fire for one prior claim")
	}
	if results[0].Contribution != 0 {
		t.Errorf("contribution = %.2f, want 0", results[0].Contribution)
	}
}

func TestEvaluateNumericRuleClamped(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	// Numeric expressions act as a fraction of the weight, clamped to [0, 1].
	rule := &domain.ScreeningRule{
		ID:         "amount-ratio",
		Name:       "Amount ratio",
		Expression: "claim_amount / 10000.0",
		Weight:     0.20,
		Enabled:    true,
	}
	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	tests := []struct {
		name   string
		amount float64
		want   float64
	}{
		{"half fraction", 5000, 0.10},
		{"clamped above one", 50000, 0.20},
		{"zero", 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := engine.EvaluateAll(context.Background(), &EvaluateInput{
				ClaimAmount: tt.amount,
				ClaimType:   domain.ClaimTypeHealth,
				ClaimantAge: 40,
			})
			if err != nil {
				t.Fatalf("evaluation failed: %v", err)
			}
			got := results[0].Contribution
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("contribution = %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestEvaluateClaimMapAccess(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.ScreeningRule{
		ID:         "severity-total-loss",
		Name:       "Total loss severity",
		Expression: `claim.incident_severity == "total_loss"`,
		Weight:     0.10,
		Enabled:    true,
	}
	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	results, err := engine.EvaluateAll(context.Background(), &EvaluateInput{
		ClaimID:     "claim-2",
		ClaimAmount: 90000,
		ClaimType:   domain.ClaimTypeAuto,
		ClaimantAge: 55,
		AdditionalData: map[string]any{
			"incident_severity": "total_loss",
		},
	})
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if !results[0].Fired {
		t.Error("expected rule to fire on claim map field")
	}
}

func TestEvaluateRuleError(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	// Compiles fine but fails at runtime when the key is absent.
	rule := &domain.ScreeningRule{
		ID:         "missing-key",
		Name:       "Missing key",
		Expression: `claim.provider_id == "unknown"`,
		Weight:     0.10,
		Enabled:    true,
	}
	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	results, err := engine.EvaluateAll(context.Background(), &EvaluateInput{
		ClaimAmount: 1000,
		ClaimType:   domain.ClaimTypeAuto,
		ClaimantAge: 40,
	})
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if results[0].Err == "" {
		t.Error("expected evaluation error to be recorded")
	}
	if results[0].Fired {
		t.Error("errored rule must not fire")
	}
	if results[0].Contribution != 0 {
		t.Errorf("errored rule contributed %.2f", results[0].Contribution)
	}
}

func TestEvaluateNoRules(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	results, err := engine.EvaluateAll(context.Background(), &EvaluateInput{
		ClaimAmount: 1000,
		ClaimType:   domain.ClaimTypeAuto,
		ClaimantAge: 40,
	})
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results with no rules loaded, got %d", len(results))
	}
	if TotalContribution(results) != 0 {
		t.Error("empty result set must contribute zero")
	}
}

func TestLoadRulesSkipsDisabled(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rules := []*domain.ScreeningRule{
		{ID: "on", Expression: "claim_amount > 100.0", Weight: 0.1, Enabled: true},
		{ID: "off", Expression: "claim_amount > 200.0", Weight: 0.1, Enabled: false},
	}

	if err := engine.LoadRules(rules); err != nil {
		t.Fatalf("failed to load rules: %v", err)
	}
	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 enabled rule loaded, got %d", engine.RulesCount())
	}
}

func TestReloadRules(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	initial := &domain.ScreeningRule{
		ID:         "initial",
		Expression: "claim_amount > 100.0",
		Weight:     0.1,
		Enabled:    true,
	}
	if err := engine.LoadRule(initial); err != nil {
		t.Fatalf("failed to load initial rule: %v", err)
	}

	replacement := []*domain.ScreeningRule{
		{ID: "replacement-a", Expression: "claimant_age < 25", Weight: 0.1, Enabled: true},
		{ID: "replacement-b", Expression: "claim_type == \"auto\"", Weight: 0.1, Enabled: true},
	}
	if err := engine.ReloadRules(replacement); err != nil {
		t.Fatalf("failed to reload rules: %v", err)
	}

	if engine.RulesCount() != 2 {
		t.Errorf("expected 2 rules after reload, got %d", engine.RulesCount())
	}
	for _, r := range engine.GetLoadedRules() {
		if r.ID == "initial" {
			t.Error("initial rule survived reload")
		}
	}
}

func TestReloadRulesAtomicOnError(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	good := &domain.ScreeningRule{
		ID:         "good",
		Expression: "claim_amount > 100.0",
		Weight:     0.1,
		Enabled:    true,
	}
	if err := engine.LoadRule(good); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	broken := []*domain.ScreeningRule{
		{ID: "ok", Expression: "claimant_age > 70", Weight: 0.1, Enabled: true},
		{ID: "broken", Expression: "not valid (((", Weight: 0.1, Enabled: true},
	}
	if err := engine.ReloadRules(broken); err == nil {
		t.Fatal("expected reload to fail on broken rule")
	}

	// Existing rules must be untouched after a failed reload.
	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule after failed reload, got %d", engine.RulesCount())
	}
}

func TestValidateRuleDoesNotLoad(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.ScreeningRule{
		ID:         "validated-only",
		Expression: "police_report_available == false",
		Weight:     0.1,
		Enabled:    true,
	}
	if err := engine.ValidateRule(rule); err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if engine.RulesCount() != 0 {
		t.Errorf("validation must not load rules, got %d loaded", engine.RulesCount())
	}
}
