// Package rules provides the CEL-Go based supplemental screening engine.
// Screening rules stack bounded increments on top of the fixed additive
// fraud score; with no rules loaded the engine contributes nothing.
package rules

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-insurance/harrier/internal/domain"
)

// Engine is the CEL-based screening rule engine.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.ScreeningRule
	Program cel.Program
}

// NewEngine creates a new screening rule engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// CEL environment with claim feature variables
	env, err := cel.NewEnv(
		cel.Variable("claim", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("claim_amount", cel.DoubleType),
		cel.Variable("claim_type", cel.StringType),
		cel.Variable("claimant_age", cel.IntType),
		cel.Variable("num_prior_claims", cel.IntType),
		cel.Variable("police_report_available", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles and validates a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(cfg *domain.ScreeningRule) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.ScreeningRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules.
func (e *Engine) LoadRules(configs []*domain.ScreeningRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// EvaluateInput holds the claim data for screening rule evaluation.
type EvaluateInput struct {
	TenantID              string
	ClaimID               string
	ClaimAmount           float64
	ClaimType             domain.ClaimType
	ClaimantAge           int
	NumPriorClaims        int
	PoliceReportAvailable bool
	AdditionalData        map[string]any
}

// EvaluateAll evaluates all loaded rules in parallel and returns the
// per-rule results. The sum of contributions is the caller's concern.
func (e *Engine) EvaluateAll(ctx context.Context, input *EvaluateInput) ([]domain.RuleResult, error) {
	e.mu.RLock()
	loaded := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		loaded = append(loaded, rule)
	}
	e.mu.RUnlock()

	if len(loaded) == 0 {
		return nil, nil
	}

	claimMap := map[string]any{
		"id":           input.ClaimID,
		"amount":       input.ClaimAmount,
		"type":         string(input.ClaimType),
		"claimant_age": input.ClaimantAge,
	}
	for k, v := range input.AdditionalData {
		claimMap[k] = v
	}

	activation := map[string]any{
		"claim":                   claimMap,
		"claim_amount":            input.ClaimAmount,
		"claim_type":              string(input.ClaimType),
		"claimant_age":            input.ClaimantAge,
		"num_prior_claims":        input.NumPriorClaims,
		"police_report_available": input.PoliceReportAvailable,
	}

	// Parallel evaluation using worker pool pattern
	results := make([]domain.RuleResult, len(loaded))
	var wg sync.WaitGroup

	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range loaded {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			results[idx] = evaluateRule(r, activation)
		}(i, rule)
	}

	wg.Wait()

	return results, nil
}

// evaluateRule evaluates a single rule and returns the result.
func evaluateRule(rule *CompiledRule, activation map[string]any) domain.RuleResult {
	result := domain.RuleResult{
		RuleID: rule.Config.ID,
	}

	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		result.Err = fmt.Sprintf("evaluation error: %v", err)
		return result
	}

	// A boolean rule contributes its full weight when true. A numeric
	// rule is treated as a fraction of the weight, clamped to [0, 1].
	fraction := toFraction(out)
	if fraction <= 0 {
		return result
	}

	result.Fired = true
	result.Contribution = fraction * rule.Config.Weight
	result.Reason = rule.Config.Description
	if result.Reason == "" {
		result.Reason = rule.Config.Name
	}

	return result
}

// toFraction converts a CEL value to a [0, 1] fraction of the rule weight.
func toFraction(val ref.Val) float64 {
	var f float64
	switch v := val.(type) {
	case types.Bool:
		if v {
			f = 1.0
		}
	case types.Double:
		f = float64(v)
	case types.Int:
		f = float64(v)
	}

	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// TotalContribution sums the increments from a set of rule results.
func TotalContribution(results []domain.RuleResult) float64 {
	var total float64
	for _, r := range results {
		total += r.Contribution
	}
	return total
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(configs []*domain.ScreeningRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.ScreeningRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	loaded := make([]*domain.ScreeningRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		loaded = append(loaded, compiled.Config)
	}
	return loaded
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.ScreeningRule) (*CompiledRule, error) {
	if cfg.Weight <= 0 || cfg.Weight > 1 {
		return nil, fmt.Errorf("rule %s: weight must be in (0, 1], got %f", cfg.ID, cfg.Weight)
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
