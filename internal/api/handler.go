package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-insurance/harrier/internal/domain"
	"github.com/opensource-insurance/harrier/internal/predictor"
	"github.com/opensource-insurance/harrier/internal/repository"
	"github.com/opensource-insurance/harrier/internal/rules"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	engine    *rules.Engine
	predictor *predictor.Predictor
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, pred *predictor.Predictor, version string) *Handler {
	return &Handler{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		engine:    engine,
		predictor: pred,
		version:   version,
	}
}

// GlobalTenantID is used for screening rules that apply to all tenants.
const GlobalTenantID = "*"

// SubmitResponse is the response for POST /claims. The claim is scored
// synchronously, so the prediction rides along with the stored claim.
type SubmitResponse struct {
	ClaimID    string                     `json:"claimId"`
	Status     domain.ClaimStatus         `json:"status"`
	Prediction *domain.PredictionResponse `json:"prediction"`
}

// SubmitClaim handles POST /claims. The claim is persisted and then
// scored in the request path; the stored status reflects the verdict.
func (h *Handler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req domain.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "type is required",
		})
		return
	}
	claimType, err := domain.ParseClaimType(req.Type)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	claim := req.ToClaim()
	claim.ID = uuid.New().String()
	claim.TenantID = tenantID
	claim.Type = claimType

	if err := h.repo.SaveClaim(ctx, tenantID, claim); err != nil {
		slog.Error("failed to save claim", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save claim",
		})
		return
	}

	pred, err := h.predictor.Predict(ctx, &predictor.Input{
		TenantID:  tenantID,
		ClaimID:   claim.ID,
		TraceID:   traceID,
		StartTime: start,
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":   "claim rejected: " + err.Error(),
				"claimId": claim.ID,
			})
			return
		}
		slog.Error("prediction failed", "claim_id", claim.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "prediction failed",
		})
		return
	}

	status := predictor.DeriveStatus(pred.FraudScore)
	writeJSON(w, http.StatusCreated, SubmitResponse{
		ClaimID:    claim.ID,
		Status:     status,
		Prediction: pred.ToResponse(status),
	})
}

// GetClaim retrieves a claim by ID.
func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	claimID := chi.URLParam(r, "id")

	claim, err := h.repo.GetClaim(ctx, tenantID, claimID)
	if err != nil {
		writeRepoError(w, "claim", claimID, err)
		return
	}

	writeJSON(w, http.StatusOK, claim)
}

// ListClaims lists claims for the tenant, optionally filtered by the
// status query parameter.
func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var status domain.ClaimStatus
	if s := r.URL.Query().Get("status"); s != "" {
		parsed, err := domain.ParseClaimStatus(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		status = parsed
	}

	claims, err := h.repo.ListClaims(ctx, tenantID, status)
	if err != nil {
		writeRepoError(w, "claims", "", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claims": claims,
		"count":  len(claims),
	})
}

// UpdateStatusRequest is the request body for PATCH /claims/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateClaimStatus handles manual status overrides by an adjuster.
func (h *Handler) UpdateClaimStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	claimID := chi.URLParam(r, "id")

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	status, err := domain.ParseClaimStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if err := h.repo.UpdateClaimStatus(ctx, tenantID, claimID, status); err != nil {
		writeRepoError(w, "claim", claimID, err)
		return
	}

	slog.Info("claim status updated", "claim_id", claimID, "status", status, "tenant_id", tenantID)
	writeJSON(w, http.StatusOK, map[string]string{
		"claimId": claimID,
		"status":  string(status),
	})
}

// DeleteClaim removes a claim and its prediction.
func (h *Handler) DeleteClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	claimID := chi.URLParam(r, "id")

	if err := h.repo.DeleteClaim(ctx, tenantID, claimID); err != nil {
		writeRepoError(w, "claim", claimID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPrediction retrieves the prediction for a claim, consulting the
// cache before the repository.
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	claimID := chi.URLParam(r, "claimId")

	if h.cache != nil {
		if pred, err := h.cache.GetPrediction(ctx, tenantID, claimID); err == nil && pred != nil {
			writeJSON(w, http.StatusOK, pred)
			return
		}
	}

	pred, err := h.repo.GetPrediction(ctx, tenantID, claimID)
	if err != nil {
		writeRepoError(w, "prediction", claimID, err)
		return
	}

	writeJSON(w, http.StatusOK, pred)
}

// ListModels returns the registered scoring models. The serving path is
// rule-based, so the registry is static until trained models land.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	models := []domain.ModelInfo{
		{
			ID:   1,
			Name: "fraud-rule-based",
			Type: "fraud",
			Metrics: map[string]string{
				"threshold": "0.5",
			},
			Status: "active",
		},
		{
			ID:   2,
			Name: "reserve-rule-based",
			Type: "reserve",
			Metrics: map[string]string{
				"fraud_holdback": "0.30",
			},
			Status: "active",
		},
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": models,
		"count":  len(models),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListRules returns all screening rules currently loaded in the engine.
// Rules are loaded from the database at startup and can be reloaded via
// POST /rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// GetRule retrieves a screening rule by ID from the loaded engine rules.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating a screening rule.
type CreateRuleRequest struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Expression  string  `json:"expression"`
	Weight      float64 `json:"weight"`
	Enabled     bool    `json:"enabled"`
}

// CreateRule creates a new screening rule and saves it to the database.
// Rules are saved globally (tenant_id = "*") so they apply to all
// tenants. After saving, call POST /rules/reload to hot-reload into the
// engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	rule := &domain.ScreeningRule{
		ID:          req.ID,
		TenantID:    GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Weight:      req.Weight,
		Enabled:     req.Enabled,
	}

	// Validate the CEL expression and weight without loading.
	if err := h.engine.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule: " + err.Error(),
		})
		return
	}

	if err := h.repo.SaveScreeningRule(ctx, GlobalTenantID, rule); err != nil {
		slog.Error("failed to save screening rule", "id", rule.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rule",
		})
		return
	}

	slog.Info("screening rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// ReloadRules reloads all screening rules from the database into the
// engine. This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbRules, err := h.repo.ListScreeningRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list screening rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("screening rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

func writeRepoError(w http.ResponseWriter, kind, id string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": kind + " not found",
		})
	case errors.Is(err, repository.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	default:
		slog.Error("repository error", "kind", kind, "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
