// Package api exposes the scoring and pricing pipelines over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/intellifone/appraisal/internal/logger"
	"github.com/intellifone/appraisal/internal/models"
	"github.com/intellifone/appraisal/internal/pricing"
	"github.com/intellifone/appraisal/internal/scoring"
	"github.com/intellifone/appraisal/internal/telegram"
)

// Appraiser runs the price-estimation pipeline.
type Appraiser interface {
	EstimatePrice(ctx context.Context, target models.Listing, ai models.AIFlags) (models.PriceRange, error)
}

// Notifier pushes completed-appraisal digests and service-health notices.
// Nil disables notification.
type Notifier interface {
	SendAppraisal(telegram.Notice) error
	SendError(error) error
	SendRecovery(failureCount int) error
}

type Handler struct {
	appraiser Appraiser
	notifier  Notifier

	// Consecutive internal estimation failures. Client mistakes
	// (400/422) do not count; only the first failure of a run is
	// alerted, and recovery names how many it ended.
	consecutiveFailures atomic.Int64
}

func NewHandler(appraiser Appraiser, notifier Notifier) *Handler {
	return &Handler{appraiser: appraiser, notifier: notifier}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", h.Health)
	mux.HandleFunc("/api/condition-score", h.ConditionScore)
	mux.HandleFunc("/api/price-prediction", h.PricePrediction)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ConditionScore scores a defect map posted as JSON.
func (h *Handler) ConditionScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	result, err := scoring.ScoreJSON(body)
	if err != nil {
		var dfe *models.DataFormatError
		if errors.As(err, &dfe) {
			writeError(w, http.StatusBadRequest, dfe.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "scoring failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// PricePredictionRequest mirrors the public form of a price request: the
// device description, the user's self-report, and the detector's flags.
// The hardware checks default to true when omitted.
type PricePredictionRequest struct {
	Brand          string  `json:"brand"`
	Model          string  `json:"model"`
	Ram            string  `json:"ram"`
	Storage        string  `json:"storage"`
	ConditionScore float64 `json:"condition_score"`

	IsPanelChanged bool  `json:"is_panel_changed"`
	ScreenCrack    bool  `json:"screen_crack"`
	PanelDot       bool  `json:"panel_dot"`
	PanelLine      bool  `json:"panel_line"`
	PanelShade     bool  `json:"panel_shade"`
	CameraLensOK   *bool `json:"camera_lens_ok"`
	FingerprintOK  *bool `json:"fingerprint_ok"`
	PTAApproved    *bool `json:"pta_approved"`

	AIScreenCrack bool `json:"ai_screen_crack"`
	AIPanelDot    bool `json:"ai_panel_dot"`
	AIPanelLine   bool `json:"ai_panel_line"`
}

// PricePredictionResponse is the client-facing price range.
type PricePredictionResponse struct {
	RequestID string `json:"request_id"`
	MinPrice  int    `json:"min_price"`
	MaxPrice  int    `json:"max_price"`
}

// PricePrediction appraises a device from its description and flags.
func (h *Handler) PricePrediction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req PricePredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	target := models.Listing{
		Brand:          req.Brand,
		Model:          req.Model,
		Ram:            req.Ram,
		Storage:        req.Storage,
		ConditionScore: req.ConditionScore,
		IsPanelChanged: req.IsPanelChanged,
		ScreenCrack:    req.ScreenCrack,
		PanelDot:       req.PanelDot,
		PanelLine:      req.PanelLine,
		PanelShade:     req.PanelShade,
		CameraLensOK:   boolOrDefault(req.CameraLensOK, true),
		FingerprintOK:  boolOrDefault(req.FingerprintOK, true),
		PTAApproved:    boolOrDefault(req.PTAApproved, true),
	}
	ai := models.AIFlags{
		ScreenCrack: req.AIScreenCrack,
		PanelDot:    req.AIPanelDot,
		PanelLine:   req.AIPanelLine,
	}

	requestID := uuid.New().String()
	logger.Info("Price request %s: %s %s", requestID, target.Brand, target.Model)

	priceRange, err := h.appraiser.EstimatePrice(r.Context(), target, ai)
	if err != nil {
		var dfe *models.DataFormatError
		var mfe *models.MissingFallbackError
		var ide *models.InsufficientDataError
		switch {
		case errors.As(err, &dfe):
			writeError(w, http.StatusBadRequest, dfe.Error())
		case errors.As(err, &mfe), errors.As(err, &ide):
			// There is no partial result; the caller's remedy is a broader
			// model search once more comparables are ingested.
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			logger.Error("Price request %s failed: %v", requestID, err)
			if h.consecutiveFailures.Add(1) == 1 && h.notifier != nil {
				if sendErr := h.notifier.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification: %v", sendErr)
				}
			}
			writeError(w, http.StatusInternalServerError, "price estimation failed")
		}
		return
	}

	if failures := h.consecutiveFailures.Swap(0); failures > 0 && h.notifier != nil {
		if sendErr := h.notifier.SendRecovery(int(failures)); sendErr != nil {
			logger.Warn("Failed to send recovery notification: %v", sendErr)
		}
	}

	if h.notifier != nil {
		notice := telegram.Notice{
			RequestID:      requestID,
			Brand:          target.Brand,
			Model:          target.Model,
			ConditionScore: target.ConditionScore,
			Range:          priceRange,
			Fused:          pricing.MergeFlags(ai, target),
			CompletedAt:    time.Now(),
		}
		if err := h.notifier.SendAppraisal(notice); err != nil {
			logger.Warn("Failed to send appraisal notice for %s: %v", requestID, err)
		}
	}

	writeJSON(w, http.StatusOK, PricePredictionResponse{
		RequestID: requestID,
		MinPrice:  priceRange.MinPrice,
		MaxPrice:  priceRange.MaxPrice,
	})
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
