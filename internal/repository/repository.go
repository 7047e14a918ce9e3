// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-insurance/harrier/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveClaim stores a claim with tenant isolation.
func (r *SQLRepository) SaveClaim(ctx context.Context, tenantID string, claim *domain.Claim) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	extracted, _ := json.Marshal(claim.ExtractedData)

	query := `
		INSERT INTO claims (
			id, tenant_id, claimant_id, type, extracted_data,
			status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		claim.ID, tenantID, claim.ClaimantID, claim.Type,
		string(extracted), claim.Status,
		claim.CreatedAt, claim.UpdatedAt,
	)
	return err
}

// GetClaim retrieves a claim by ID with tenant isolation.
func (r *SQLRepository) GetClaim(ctx context.Context, tenantID string, claimID string) (*domain.Claim, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, claimant_id, type, extracted_data,
			   status, created_at, updated_at
		FROM claims
		WHERE tenant_id = ? AND id = ?
	`

	var claim domain.Claim
	var extracted string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, claimID).Scan(
		&claim.ID, &claim.TenantID, &claim.ClaimantID, &claim.Type,
		&extracted, &claim.Status,
		&claim.CreatedAt, &claim.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if extracted != "" {
		json.Unmarshal([]byte(extracted), &claim.ExtractedData)
	}

	return &claim, nil
}

// ListClaims retrieves claims for a tenant, optionally filtered by status.
func (r *SQLRepository) ListClaims(ctx context.Context, tenantID string, status domain.ClaimStatus) ([]*domain.Claim, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, claimant_id, type, extracted_data,
			   status, created_at, updated_at
		FROM claims
		WHERE tenant_id = ?
	`
	args := []any{tenantID}

	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []*domain.Claim
	for rows.Next() {
		var claim domain.Claim
		var extracted string

		if err := rows.Scan(
			&claim.ID, &claim.TenantID, &claim.ClaimantID, &claim.Type,
			&extracted, &claim.Status,
			&claim.CreatedAt, &claim.UpdatedAt,
		); err != nil {
			return nil, err
		}

		if extracted != "" {
			json.Unmarshal([]byte(extracted), &claim.ExtractedData)
		}

		claims = append(claims, &claim)
	}

	return claims, rows.Err()
}

// UpdateClaimStatus transitions a claim's lifecycle state.
func (r *SQLRepository) UpdateClaimStatus(ctx context.Context, tenantID string, claimID string, status domain.ClaimStatus) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE claims
		SET status = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), status, time.Now().UTC(), tenantID, claimID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteClaim removes a claim and its prediction, if any.
func (r *SQLRepository) DeleteClaim(ctx context.Context, tenantID string, claimID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx,
		r.rebind(`DELETE FROM claims WHERE tenant_id = ? AND id = ?`),
		tenantID, claimID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	// The prediction is meaningless without its claim.
	_, err = r.db.ExecContext(ctx,
		r.rebind(`DELETE FROM predictions WHERE tenant_id = ? AND claim_id = ?`),
		tenantID, claimID,
	)
	return err
}

// CountClaimsByClaimant counts a claimant's claims since the given time.
func (r *SQLRepository) CountClaimsByClaimant(ctx context.Context, tenantID string, claimantID string, since time.Time) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*)
		FROM claims
		WHERE tenant_id = ? AND claimant_id = ? AND created_at >= ?
	`

	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, claimantID, since).Scan(&count)
	return count, err
}

// SavePrediction upserts the prediction for a claim. At most one
// prediction exists per claim; the last write wins.
func (r *SQLRepository) SavePrediction(ctx context.Context, tenantID string, pred *domain.Prediction) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	ruleResults, _ := json.Marshal(pred.RuleResults)
	metadata, _ := json.Marshal(pred.Metadata)

	fraudulent := 0
	if pred.IsFraudulent {
		fraudulent = 1
	}

	query := `
		INSERT INTO predictions (
			claim_id, tenant_id, fraud_score, is_fraudulent,
			reserve_estimate, model_version, created_at, rule_results, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id, tenant_id) DO UPDATE SET
			fraud_score = excluded.fraud_score,
			is_fraudulent = excluded.is_fraudulent,
			reserve_estimate = excluded.reserve_estimate,
			model_version = excluded.model_version,
			created_at = excluded.created_at,
			rule_results = excluded.rule_results,
			metadata = excluded.metadata
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		pred.ClaimID, tenantID, pred.FraudScore, fraudulent,
		pred.ReserveEstimate, pred.ModelVersion, pred.CreatedAt,
		string(ruleResults), string(metadata),
	)
	return err
}

// GetPrediction retrieves the prediction for a claim with tenant isolation.
func (r *SQLRepository) GetPrediction(ctx context.Context, tenantID string, claimID string) (*domain.Prediction, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT claim_id, tenant_id, fraud_score, is_fraudulent,
			   reserve_estimate, model_version, created_at, rule_results, metadata
		FROM predictions
		WHERE tenant_id = ? AND claim_id = ?
	`

	var pred domain.Prediction
	var fraudulent int
	var ruleResults, metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, claimID).Scan(
		&pred.ClaimID, &pred.TenantID, &pred.FraudScore, &fraudulent,
		&pred.ReserveEstimate, &pred.ModelVersion, &pred.CreatedAt,
		&ruleResults, &metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	pred.IsFraudulent = fraudulent == 1
	if ruleResults != "" {
		json.Unmarshal([]byte(ruleResults), &pred.RuleResults)
	}
	json.Unmarshal([]byte(metadata), &pred.Metadata)

	return &pred, nil
}

// DeletePrediction removes the prediction for a claim.
func (r *SQLRepository) DeletePrediction(ctx context.Context, tenantID string, claimID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx,
		r.rebind(`DELETE FROM predictions WHERE tenant_id = ? AND claim_id = ?`),
		tenantID, claimID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveScreeningRule stores a screening rule with tenant isolation.
func (r *SQLRepository) SaveScreeningRule(ctx context.Context, tenantID string, rule *domain.ScreeningRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO screening_rules (
			id, tenant_id, name, description, version, expression, weight, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			weight = excluded.weight,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Expression, rule.Weight, enabled,
		now, now,
	)
	return err
}

// GetScreeningRule retrieves the latest enabled version of a rule.
func (r *SQLRepository) GetScreeningRule(ctx context.Context, tenantID string, ruleID string) (*domain.ScreeningRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, weight, enabled
		FROM screening_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var rule domain.ScreeningRule
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID).Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
		&rule.Version, &rule.Expression, &rule.Weight, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1

	return &rule, nil
}

// ListScreeningRules retrieves all enabled screening rules for a tenant.
func (r *SQLRepository) ListScreeningRules(ctx context.Context, tenantID string) ([]*domain.ScreeningRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, weight, enabled
		FROM screening_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.ScreeningRule
	for rows.Next() {
		var rule domain.ScreeningRule
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
			&rule.Version, &rule.Expression, &rule.Weight, &enabled,
		); err != nil {
			return nil, err
		}

		rule.Enabled = enabled == 1
		configs = append(configs, &rule)
	}

	return configs, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
