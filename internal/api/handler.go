package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/technoKC/fraud-shield/internal/batch"
	"github.com/technoKC/fraud-shield/internal/domain"
	"github.com/technoKC/fraud-shield/internal/engine"
	"github.com/technoKC/fraud-shield/internal/monitor"
	"github.com/technoKC/fraud-shield/internal/repository"
	"github.com/technoKC/fraud-shield/internal/rules"
)

const reportCachePrefix = "report:"

// reportCacheTTL bounds how long a finished report stays retrievable.
// Reports are never persisted; the cache is the only copy.
const reportCacheTTL = time.Hour

// Handler holds dependencies for API handlers.
type Handler struct {
	engine    *engine.Engine
	screening *rules.ScreeningEngine
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	overrides domain.OverrideStore
	monitor   *monitor.Monitor
	version   string

	maxUploadBytes int64
}

// NewHandler creates a new API handler.
func NewHandler(eng *engine.Engine, screening *rules.ScreeningEngine, repo domain.Repository, cache domain.Cache, bus domain.EventBus, overrides domain.OverrideStore, m *monitor.Monitor, version string, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &Handler{
		engine:         eng,
		screening:      screening,
		repo:           repo,
		cache:          cache,
		bus:            bus,
		overrides:      overrides,
		monitor:        m,
		version:        version,
		maxUploadBytes: maxUploadBytes,
	}
}

// Detect handles POST /detect: a multipart CSV upload analyzed as one batch.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "multipart field 'file' is required",
		})
		return
	}
	defer file.Close()

	records, err := batch.DecodeCSV(file)
	if err != nil {
		var missing *batch.MissingColumnsError
		if errors.As(err, &missing) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": missing.Error(),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "failed to parse CSV: " + err.Error(),
		})
		return
	}

	report, err := h.engine.Analyze(ctx, records)
	if err != nil {
		slog.Error("batch analysis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "analysis failed",
		})
		return
	}

	// Presentation-time join of analyst overrides; scores are untouched.
	h.applyOverrides(ctx, report)

	payload, err := json.Marshal(report)
	if err != nil {
		slog.Error("failed to marshal report", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to encode report",
		})
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, reportCachePrefix+report.ReportID, payload, reportCacheTTL); err != nil {
			slog.Error("failed to cache report", "report_id", report.ReportID, "error", err)
		}
	}

	if h.bus != nil {
		if err := h.bus.Publish(ctx, domain.TopicBatchAnalyzed, payload); err != nil {
			slog.Error("failed to publish batch event", "report_id", report.ReportID, "error", err)
		}
	}

	slog.Info("batch analyzed",
		"report_id", report.ReportID,
		"transactions", report.TotalTransactions,
		"fraud_detected", report.FraudDetected,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// GetReport retrieves a cached report by id.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "id")
	if reportID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "report id is required",
		})
		return
	}

	if h.cache == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "report cache not available",
		})
		return
	}

	payload, err := h.cache.Get(r.Context(), reportCachePrefix+reportID)
	if err != nil {
		slog.Error("failed to read report cache", "report_id", reportID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to retrieve report",
		})
		return
	}
	if payload == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "report not found or expired",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// UpdateStatusRequest is the request body for PUT /transactions/{id}/status.
type UpdateStatusRequest struct {
	Status         string `json:"status"`
	ExpectedStatus string `json:"expected_status,omitempty"`
	UpdatedBy      string `json:"updated_by"`
}

// UpdateStatus assigns a manual status to one transaction.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID := chi.URLParam(r, "id")

	if txID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "transaction id is required",
		})
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	ov := domain.Override{
		TransactionID: txID,
		Status:        status,
		UpdatedBy:     req.UpdatedBy,
		UpdatedAt:     time.Now().UTC(),
	}

	if req.ExpectedStatus != "" {
		expected, err := domain.ParseStatus(req.ExpectedStatus)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}

		swapped, err := h.overrides.CompareAndSwap(ctx, txID, expected, ov)
		if err != nil {
			slog.Error("failed to update status", "tx_id", txID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to update status",
			})
			return
		}
		if !swapped {
			writeJSON(w, http.StatusConflict, map[string]string{
				"error": "current status does not match expected_status",
			})
			return
		}
	} else {
		if err := h.overrides.Set(ctx, ov); err != nil {
			slog.Error("failed to update status", "tx_id", txID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to update status",
			})
			return
		}
	}

	h.persistOverride(ctx, &ov)

	writeJSON(w, http.StatusOK, ov)
}

// persistOverride writes the override and its audit record through the
// repository. Failures are logged, not surfaced; the in-memory store already
// holds the new status.
func (h *Handler) persistOverride(ctx context.Context, ov *domain.Override) {
	if h.repo == nil {
		return
	}

	if err := h.repo.SaveOverride(ctx, ov); err != nil {
		slog.Error("failed to persist override", "tx_id", ov.TransactionID, "error", err)
	}

	ev := &domain.AuditEvent{
		ID:            uuid.New().String(),
		Actor:         ov.UpdatedBy,
		Action:        "status:" + string(ov.Status),
		TransactionID: ov.TransactionID,
		CreatedAt:     ov.UpdatedAt,
	}
	if err := h.repo.SaveAuditEvent(ctx, ev); err != nil {
		slog.Error("failed to record audit event", "tx_id", ov.TransactionID, "error", err)
	}
}

// ListOverrides returns every manual override.
func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.overrides.List(r.Context())
	if err != nil {
		slog.Error("failed to list overrides", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list overrides",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"overrides": overrides,
		"count":     len(overrides),
	})
}

// ListRules returns all persisted screening rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	ruleList, err := h.repo.ListScreeningRules(r.Context())
	if err != nil {
		slog.Error("failed to list rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list rules",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  ruleList,
		"count":  len(ruleList),
		"loaded": h.screening.RulesCount(),
	})
}

// GetRule retrieves a screening rule by id.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")
	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	rule, err := h.repo.GetScreeningRule(r.Context(), ruleID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "rule not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get rule", "id", ruleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get rule",
		})
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// CreateRuleRequest is the request body for creating a screening rule.
type CreateRuleRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Reason      string `json:"reason,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// CreateRule validates and persists a screening rule.
// Call POST /rules/reload to load it into the screening engine.
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

	rule := domain.ScreeningRule{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Reason:      req.Reason,
		Enabled:     req.Enabled,
	}

	if err := h.screening.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveScreeningRule(ctx, &rule); err != nil {
			slog.Error("failed to save rule", "id", rule.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("screening rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// DeleteRule removes a screening rule from the repository and the engine.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")
	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	err := h.repo.DeleteScreeningRule(r.Context(), ruleID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "rule not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to delete rule", "id", ruleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete rule",
		})
		return
	}

	h.screening.RemoveRule(ruleID)

	slog.Info("screening rule deleted", "id", ruleID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "rule deleted",
	})
}

// ReloadRules reloads all enabled screening rules from the repository into
// the screening engine.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	stored, err := h.repo.ListScreeningRules(ctx)
	if err != nil {
		slog.Error("failed to list rules for reload", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from repository",
		})
		return
	}

	ruleList := make([]domain.ScreeningRule, 0, len(stored))
	for _, rule := range stored {
		ruleList = append(ruleList, *rule)
	}

	if err := h.screening.Reload(ruleList); err != nil {
		slog.Error("failed to reload screening rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("screening rules reloaded", "count", h.screening.RulesCount())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   h.screening.RulesCount(),
	})
}

// SecurityDashboard returns aggregated monitor data.
func (h *Handler) SecurityDashboard(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "monitor not available",
		})
		return
	}

	dash, err := h.monitor.DashboardData(r.Context(), time.Now().UTC())
	if err != nil {
		slog.Error("failed to build security dashboard", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to build dashboard",
		})
		return
	}

	writeJSON(w, http.StatusOK, dash)
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
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
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

// applyOverrides stamps analyst statuses onto result entries and the flagged
// transaction list.
func (h *Handler) applyOverrides(ctx context.Context, report *domain.BatchReport) {
	if h.overrides == nil {
		return
	}

	overrides, err := h.overrides.List(ctx)
	if err != nil {
		slog.Error("failed to join overrides", "error", err)
		return
	}
	if len(overrides) == 0 {
		return
	}

	byTx := make(map[string]domain.Status, len(overrides))
	for _, ov := range overrides {
		byTx[ov.TransactionID] = ov.Status
	}

	for i := range report.Results {
		if status, ok := byTx[report.Results[i].Transaction.TransactionID]; ok {
			report.Results[i].Transaction.Status = string(status)
		}
	}
	for i := range report.FraudTransactions {
		if status, ok := byTx[report.FraudTransactions[i].TransactionID]; ok {
			report.FraudTransactions[i].Status = string(status)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
