// Package api provides the HTTP surface of Falcon: the prediction
// endpoint, decision and transaction retrieval, the admin review
// queue, merchant management and analytics.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/falcon-fin/falcon/internal/domain"
	"github.com/falcon-fin/falcon/internal/pipeline"
	"github.com/falcon-fin/falcon/internal/repository"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	pipeline *pipeline.Pipeline
	validate *validator.Validate
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, p *pipeline.Pipeline, version string) *Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report field names as their JSON keys in validation errors.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		pipeline: p,
		validate: validate,
		version:  version,
	}
}

// PredictResponse is the response for POST /predict.
type PredictResponse struct {
	TransactionID   string             `json:"transaction_id"`
	RFPrediction    int                `json:"rf_prediction"`
	AnomalyScore    float64            `json:"anomaly_score"`
	RiskScore       float64            `json:"risk_score"`
	RiskLevel       domain.RiskLevel   `json:"risk_level"`
	FinalDecision   domain.Disposition `json:"final_decision"`
	ViolationReason string             `json:"violation_reason,omitempty"`
	GeoAnomaly      bool               `json:"geo_anomaly"`
	RapidRepeat     bool               `json:"rapid_repeat"`
	NewBeneficiary  bool               `json:"new_beneficiary"`
	Timestamp       time.Time          `json:"timestamp"`
}

// Predict handles POST /predict requests.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Resolve the channel alias before checking required fields.
	req.Normalize()

	if err := h.validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("Missing fields: [%s]", strings.Join(fields, ", ")),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid request",
		})
		return
	}

	result, err := h.pipeline.Evaluate(ctx, &req)
	if err != nil {
		slog.Error("prediction failed",
			"sender", req.SenderAccount,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, PredictResponse{
		TransactionID:   result.TxID,
		RFPrediction:    result.RFPrediction,
		AnomalyScore:    round(result.AnomalyScore, 3),
		RiskScore:       round(result.RiskScore, 2),
		RiskLevel:       result.RiskLevel,
		FinalDecision:   result.FinalDecision,
		ViolationReason: result.ViolationReason,
		GeoAnomaly:      result.GeoAnomaly,
		RapidRepeat:     result.RapidRepeat,
		NewBeneficiary:  result.NewBeneficiary,
		Timestamp:       result.Timestamp,
	})
}

// GetTransaction retrieves a history record by ID.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID := chi.URLParam(r, "id")

	rec, err := h.repo.GetHistoryRecord(ctx, txID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "transaction not found",
			})
			return
		}
		slog.Error("failed to get transaction", "id", txID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get transaction",
		})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// GetDecision retrieves a decision by ID.
func (h *Handler) GetDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decID := chi.URLParam(r, "id")

	dec, err := h.repo.GetDecision(ctx, decID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "decision not found",
			})
			return
		}
		slog.Error("failed to get decision", "id", decID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get decision",
		})
		return
	}

	writeJSON(w, http.StatusOK, dec)
}

// AnalyticsSummary returns aggregate decision statistics.
func (h *Handler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.repo.DecisionStats(r.Context())
	if err != nil {
		slog.Error("failed to compute analytics", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to compute analytics",
		})
		return
	}

	summary.AverageRisk = round(summary.AverageRisk, 2)
	writeJSON(w, http.StatusOK, summary)
}

// ListReviewQueue returns decisions awaiting admin review.
func (h *Handler) ListReviewQueue(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	pending, err := h.repo.ListPendingReviews(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list review queue", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list review queue",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"decisions": pending,
		"count":     len(pending),
	})
}

// ReviewRequest is the request body for POST /admin/review.
type ReviewRequest struct {
	DecisionID string `json:"decision_id" validate:"required"`
	Verdict    string `json:"verdict" validate:"required,oneof=approved rejected"`
}

// SubmitReview records an admin verdict for a pending decision.
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "decision_id and a verdict of approved or rejected are required",
		})
		return
	}

	if err := h.repo.SetReviewVerdict(ctx, req.DecisionID, req.Verdict); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "no pending decision with that id",
			})
			return
		}
		if errors.Is(err, repository.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		slog.Error("failed to submit review", "decision_id", req.DecisionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to submit review",
		})
		return
	}

	slog.Info("review verdict recorded",
		"decision_id", req.DecisionID,
		"verdict", req.Verdict,
	)

	writeJSON(w, http.StatusOK, map[string]string{
		"decision_id": req.DecisionID,
		"verdict":     req.Verdict,
	})
}

// GetMerchant retrieves merchant metadata for a beneficiary account.
func (h *Handler) GetMerchant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := chi.URLParam(r, "account")

	meta, err := h.repo.GetMerchantMetadata(ctx, account)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "merchant not found",
			})
			return
		}
		slog.Error("failed to get merchant", "account", account, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get merchant",
		})
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

// MerchantRequest is the request body for PUT /merchants/{account}.
type MerchantRequest struct {
	MerchantName     string  `json:"merchant_name,omitempty"`
	MerchantCategory string  `json:"merchant_category" validate:"required"`
	DeviceType       string  `json:"device_type" validate:"required"`
	Lat              float64 `json:"lat" validate:"min=-90,max=90"`
	Lon              float64 `json:"lon" validate:"min=-180,max=180"`
}

// PutMerchant creates or replaces merchant metadata for an account.
func (h *Handler) PutMerchant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := chi.URLParam(r, "account")

	var req MerchantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "merchant_category, device_type and valid coordinates are required",
		})
		return
	}

	meta := &domain.MerchantMetadata{
		BeneficiaryAccount: account,
		MerchantName:       req.MerchantName,
		MerchantCategory:   req.MerchantCategory,
		DeviceType:         req.DeviceType,
		Lat:                req.Lat,
		Lon:                req.Lon,
	}

	if err := h.repo.UpsertMerchantMetadata(ctx, meta); err != nil {
		slog.Error("failed to upsert merchant", "account", account, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save merchant",
		})
		return
	}

	// Drop any cached copy so the next lookup sees the new row.
	if h.cache != nil {
		if err := h.cache.Delete(ctx, "merchant:"+account); err != nil {
			slog.Warn("failed to invalidate merchant cache", "account", account, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, meta)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
