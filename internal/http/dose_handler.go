package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
	"github.com/leplonghi/Horamed-AG-sub003/internal/scheduler"
)

// DoseGenerator schedule expansion entry point
type DoseGenerator interface {
	EnsureDosesGenerated(ctx context.Context, profileID string, windowDays int, force bool) (*scheduler.Result, error)
}

// DoseRecorder dose status transitions
type DoseRecorder interface {
	RecordDoseStatus(ctx context.Context, profileID, doseID string, status models.DoseStatus, at time.Time) (*models.DoseInstance, error)
}

// DoseHandler dose endpoints
type DoseHandler struct {
	generator DoseGenerator
	recorder  DoseRecorder
	logger    *zap.Logger
}

func NewDoseHandler(generator DoseGenerator, recorder DoseRecorder, logger *zap.Logger) *DoseHandler {
	return &DoseHandler{generator: generator, recorder: recorder, logger: logger}
}

// ServeHTTP
//   - POST /api/v1/doses/generate[?force=true&days=N]
//   - PUT  /api/v1/doses/{id}/status
func (h *DoseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/doses/")
	if rest == "generate" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Generate(w, r)
		return
	}

	doseID, action, ok := strings.Cut(rest, "/")
	if !ok || doseID == "" || action != "status" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.UpdateStatus(w, r, doseID)
}

func (h *DoseHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusOK, Fail("days must be a positive integer"))
			return
		}
		days = n
	}

	res, err := h.generator.EnsureDosesGenerated(r.Context(), userID, days, parseBool(r.URL.Query().Get("force")))
	if err != nil {
		h.logger.Error("Failed to generate doses", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(errorMessage(err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

type doseStatusRequest struct {
	Status string     `json:"status"`
	At     *time.Time `json:"at,omitempty"`
}

func (h *DoseHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, doseID string) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	var req doseStatusRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	var at time.Time
	if req.At != nil {
		at = *req.At
	}

	dose, err := h.recorder.RecordDoseStatus(r.Context(), userID, doseID, models.DoseStatus(req.Status), at)
	if err != nil {
		h.logger.Warn("Failed to record dose status",
			zap.String("user_id", userID),
			zap.String("dose_id", doseID),
			zap.String("status", req.Status),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(errorMessage(err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(dose))
}
