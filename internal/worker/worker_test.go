package worker

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-insurance/harrier/internal/bus"
	"github.com/opensource-insurance/harrier/internal/domain"
	"github.com/opensource-insurance/harrier/internal/predictor"
	"github.com/opensource-insurance/harrier/internal/repository"
	"github.com/opensource-insurance/harrier/internal/scoring"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "harrier-worker-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func saveClaim(t *testing.T, repo domain.Repository, tenantID string, claim *domain.Claim) {
	t.Helper()
	now := time.Now().UTC()
	claim.Status = domain.StatusPending
	claim.CreatedAt = now
	claim.UpdatedAt = now
	if err := repo.SaveClaim(context.Background(), tenantID, claim); err != nil {
		t.Fatalf("SaveClaim failed: %v", err)
	}
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	repo := newTestRepo(t)

	pred := predictor.New(
		repo, nil, eventBus, nil, nil,
		scoring.NewFraudScorer(),
		scoring.NewReserveEstimator(rand.New(rand.NewSource(1))),
	)

	worker := NewWorker(eventBus, pred)

	t.Run("StartAndStop", func(t *testing.T) {
		cfg := Config{
			TenantIDs:   []string{"tenant-001"},
			WorkerCount: 1,
		}

		err := worker.Start(cfg)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := worker.GetStats()
		if stats.SubscriptionCount != 1 {
			t.Errorf("expected 1 subscription, got %d", stats.SubscriptionCount)
		}

		err = worker.Stop()
		if err != nil {
			t.Errorf("Stop failed: %v", err)
		}

		stats = worker.GetStats()
		if stats.SubscriptionCount != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
		}
	})

	t.Run("ProcessClaim", func(t *testing.T) {
		w := NewWorker(eventBus, pred)

		cfg := Config{
			TenantIDs: []string{"tenant-test"},
		}
		w.Start(cfg)
		defer w.Stop()

		saveClaim(t, repo, "tenant-test", &domain.Claim{
			ID:   "claim-001",
			Type: domain.ClaimTypeHealth,
			ExtractedData: map[string]any{
				"claim_amount": 5000.0,
				"claimant_age": 40.0,
			},
		})

		// Track published predictions
		var completedReceived atomic.Bool
		var completedPayload []byte

		eventBus.Subscribe(context.Background(), "tenant-test", domain.TopicPredictionCompleted, func(ctx context.Context, msg *domain.Message) error {
			completedPayload = msg.Payload
			completedReceived.Store(true)
			return nil
		})

		// Allow subscriptions to be active
		time.Sleep(50 * time.Millisecond)

		claimMsg := ClaimMessage{
			ClaimID:  "claim-001",
			TenantID: "tenant-test",
			TraceID:  "trace-001",
		}

		payload, _ := json.Marshal(claimMsg)
		err := eventBus.Publish(context.Background(), "tenant-test", domain.TopicClaimIngested, payload)
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		// Wait for processing
		time.Sleep(100 * time.Millisecond)

		if !completedReceived.Load() {
			t.Error("expected prediction to be published")
		}

		if completedPayload != nil {
			var p domain.Prediction
			if err := json.Unmarshal(completedPayload, &p); err != nil {
				t.Fatalf("failed to parse prediction: %v", err)
			}

			if p.ClaimID != "claim-001" {
				t.Errorf("expected claimID 'claim-001', got '%s'", p.ClaimID)
			}
			if p.TenantID != "tenant-test" {
				t.Errorf("expected tenantID 'tenant-test', got '%s'", p.TenantID)
			}
			if p.Metadata.TraceID != "trace-001" {
				t.Errorf("expected traceID 'trace-001', got '%s'", p.Metadata.TraceID)
			}
		}

		claim, err := repo.GetClaim(context.Background(), "tenant-test", "claim-001")
		if err != nil {
			t.Fatalf("GetClaim failed: %v", err)
		}
		if claim.Status != domain.StatusApproved {
			t.Errorf("expected approved status after processing, got %s", claim.Status)
		}
	})

	t.Run("FlaggedClaimPublished", func(t *testing.T) {
		w := NewWorker(eventBus, pred)

		cfg := Config{
			TenantIDs: []string{"tenant-flag"},
		}
		w.Start(cfg)
		defer w.Stop()

		// 60000 auto age 75 scores 0.80, well over the threshold.
		saveClaim(t, repo, "tenant-flag", &domain.Claim{
			ID:   "claim-flagged",
			Type: domain.ClaimTypeAuto,
			ExtractedData: map[string]any{
				"claim_amount": 60000.0,
				"claimant_age": 75.0,
			},
		})

		var flaggedReceived atomic.Bool

		eventBus.Subscribe(context.Background(), "tenant-flag", domain.TopicClaimFlagged, func(ctx context.Context, msg *domain.Message) error {
			flaggedReceived.Store(true)
			return nil
		})

		time.Sleep(50 * time.Millisecond)

		payload, _ := json.Marshal(ClaimMessage{ClaimID: "claim-flagged", TenantID: "tenant-flag"})
		eventBus.Publish(context.Background(), "tenant-flag", domain.TopicClaimIngested, payload)

		time.Sleep(100 * time.Millisecond)

		if !flaggedReceived.Load() {
			t.Error("expected flagged event for high-risk claim")
		}

		claim, _ := repo.GetClaim(context.Background(), "tenant-flag", "claim-flagged")
		if claim.Status != domain.StatusRejected {
			t.Errorf("expected rejected status, got %s", claim.Status)
		}
	})

	t.Run("MultiTenant", func(t *testing.T) {
		w := NewWorker(eventBus, pred)

		cfg := Config{
			TenantIDs: []string{"tenant-a", "tenant-b"},
		}
		w.Start(cfg)
		defer w.Stop()

		stats := w.GetStats()
		if stats.SubscriptionCount != 2 {
			t.Errorf("expected 2 subscriptions for 2 tenants, got %d", stats.SubscriptionCount)
		}
	})
}

func TestClaimMessageParsing(t *testing.T) {
	msg := ClaimMessage{
		ClaimID:  "claim-123",
		TenantID: "tenant-001",
		TraceID:  "trace-456",
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var parsed ClaimMessage
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if parsed.ClaimID != msg.ClaimID {
		t.Errorf("expected claimID %s, got %s", msg.ClaimID, parsed.ClaimID)
	}
	if parsed.TraceID != msg.TraceID {
		t.Errorf("expected traceID %s, got %s", msg.TraceID, parsed.TraceID)
	}
}
