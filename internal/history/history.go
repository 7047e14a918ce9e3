// Package history provides claimant claim-frequency lookups.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-insurance/harrier/internal/domain"
)

// Service answers how often a claimant has filed recently. Frequent
// filers are a screening signal; the count feeds rule expressions and
// the API's claimant history endpoint.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new claim history service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// GetClaimCount returns the number of claims a claimant filed within the
// window, reading from the repository.
func (s *Service) GetClaimCount(ctx context.Context, tenantID, claimantID string, windowSecs int) (int64, error) {
	if tenantID == "" || claimantID == "" {
		return 0, fmt.Errorf("tenantID and claimantID are required")
	}
	if s.repo == nil {
		return 0, fmt.Errorf("no data source available")
	}

	since := time.Now().Add(-time.Duration(windowSecs) * time.Second)
	return s.repo.CountClaimsByClaimant(ctx, tenantID, claimantID, since)
}

// RecordSubmission bumps the claimant's rolling submission counter and
// returns the new count. Counters live in the cache; the repository
// remains the source of truth for claim history.
func (s *Service) RecordSubmission(ctx context.Context, tenantID, claimantID string, window time.Duration) (int64, error) {
	if tenantID == "" || claimantID == "" {
		return 0, fmt.Errorf("tenantID and claimantID are required")
	}
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.IncrementCounter(ctx, tenantID, "claimant:"+claimantID, window)
}

// GetCounter returns a claim-count function for callers that only need
// the lookup, such as rule loading.
func (s *Service) GetCounter() func(ctx context.Context, tenantID, claimantID string, windowSecs int) (int64, error) {
	return s.GetClaimCount
}
