package domain

// ScreeningRule defines a supplemental fraud screening rule.
// Rules are CEL expressions over claim features; a truthy result adds the
// rule's weight to the base fraud score. The built-in additive rule system
// is fixed in code, so with no screening rules configured the score is
// exactly the base system's output.
type ScreeningRule struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// CEL expression to evaluate against claim features
	Expression string `json:"expression"`

	// Score increment contributed when the rule fires, in (0, 1].
	Weight float64 `json:"weight"`

	// Whether rule is active
	Enabled bool `json:"enabled"`
}

// RuleResult is the output of a single screening rule evaluation.
type RuleResult struct {
	RuleID       string  `json:"ruleId"`
	Fired        bool    `json:"fired"`
	Contribution float64 `json:"contribution"` // weight actually added
	Reason       string  `json:"reason,omitempty"`
	Err          string  `json:"error,omitempty"`
}
