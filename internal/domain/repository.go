// Package domain defines the core interfaces and types for Harrier.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Claim operations
	SaveClaim(ctx context.Context, tenantID string, claim *Claim) error
	GetClaim(ctx context.Context, tenantID string, claimID string) (*Claim, error)
	ListClaims(ctx context.Context, tenantID string, status ClaimStatus) ([]*Claim, error)
	UpdateClaimStatus(ctx context.Context, tenantID string, claimID string, status ClaimStatus) error
	DeleteClaim(ctx context.Context, tenantID string, claimID string) error
	CountClaimsByClaimant(ctx context.Context, tenantID string, claimantID string, since time.Time) (int64, error)

	// Prediction operations. SavePrediction upserts: at most one
	// prediction per claim, last write wins.
	SavePrediction(ctx context.Context, tenantID string, pred *Prediction) error
	GetPrediction(ctx context.Context, tenantID string, claimID string) (*Prediction, error)
	DeletePrediction(ctx context.Context, tenantID string, claimID string) error

	// Screening rule operations
	SaveScreeningRule(ctx context.Context, tenantID string, rule *ScreeningRule) error
	GetScreeningRule(ctx context.Context, tenantID string, ruleID string) (*ScreeningRule, error)
	ListScreeningRules(ctx context.Context, tenantID string) ([]*ScreeningRule, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
