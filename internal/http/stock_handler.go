package httpapi

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// StockLedger stock read model and mutations
type StockLedger interface {
	Summary(ctx context.Context, medicationID string) *models.StockSummary
	Refill(ctx context.Context, medicationID string, quantity int) (*models.StockRecord, error)
	Adjust(ctx context.Context, medicationID string, delta int, reason models.ConsumptionReason) (*models.StockRecord, error)
}

// MedicationGetter ownership lookups
type MedicationGetter interface {
	GetMedication(ctx context.Context, medicationID string) (*models.Medication, error)
}

// StockHandler stock endpoints
type StockHandler struct {
	ledger      StockLedger
	medications MedicationGetter
	logger      *zap.Logger
}

func NewStockHandler(ledger StockLedger, medications MedicationGetter, logger *zap.Logger) *StockHandler {
	return &StockHandler{ledger: ledger, medications: medications, logger: logger}
}

// ServeHTTP
//   - GET  /api/v1/stock/{medicationId}
//   - POST /api/v1/stock/{medicationId}/refill
//   - POST /api/v1/stock/{medicationId}/adjust
func (h *StockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/stock/")
	medID, action, _ := strings.Cut(rest, "/")
	if medID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetStock(w, r, medID)
	case "refill", "adjust":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if action == "refill" {
			h.Refill(w, r, medID)
		} else {
			h.Adjust(w, r, medID)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// owned resolves the user and checks the medication belongs to them
func (h *StockHandler) owned(w http.ResponseWriter, r *http.Request, medID string) (string, bool) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return "", false
	}
	med, err := h.medications.GetMedication(r.Context(), medID)
	if err != nil || med.ProfileID != userID {
		writeJSON(w, http.StatusOK, Fail(errorMessage(models.ErrNotFound)))
		return "", false
	}
	return userID, true
}

func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request, medID string) {
	if sessionUserID(r) == "" {
		writeJSON(w, http.StatusOK, Ok(&models.StockSummary{MedicationID: medID, Trend: models.TrendStable}))
		return
	}
	if _, ok := h.owned(w, r, medID); !ok {
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.ledger.Summary(r.Context(), medID)))
}

type refillRequest struct {
	Quantity int `json:"quantity"`
}

func (h *StockHandler) Refill(w http.ResponseWriter, r *http.Request, medID string) {
	userID, ok := h.owned(w, r, medID)
	if !ok {
		return
	}
	var req refillRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	rec, err := h.ledger.Refill(r.Context(), medID, req.Quantity)
	if err != nil {
		h.logger.Warn("Failed to refill stock", zap.String("user_id", userID), zap.String("medication_id", medID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(errorMessage(err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

type adjustRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request, medID string) {
	userID, ok := h.owned(w, r, medID)
	if !ok {
		return
	}
	var req adjustRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	reason := models.ConsumptionReason(req.Reason)
	if reason == "" {
		reason = models.ReasonAdjusted
	}
	rec, err := h.ledger.Adjust(r.Context(), medID, req.Delta, reason)
	if err != nil {
		h.logger.Warn("Failed to adjust stock", zap.String("user_id", userID), zap.String("medication_id", medID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(errorMessage(err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}
