package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// AdherenceReader adherence read model
type AdherenceReader interface {
	Summary(ctx context.Context, profileID string) (*models.AdherenceSummary, error)
}

// AdherenceHandler adherence endpoints
type AdherenceHandler struct {
	analyzer AdherenceReader
	logger   *zap.Logger
}

func NewAdherenceHandler(analyzer AdherenceReader, logger *zap.Logger) *AdherenceHandler {
	return &AdherenceHandler{analyzer: analyzer, logger: logger}
}

// ServeHTTP
//   - GET /api/v1/adherence
//   - GET /api/v1/adherence/report.xlsx
func (h *AdherenceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v1/adherence":
		h.GetSummary(w, r)
	case "/api/v1/adherence/report.xlsx":
		h.ExportReport(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AdherenceHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID := sessionUserID(r)
	sum, err := h.analyzer.Summary(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to build adherence summary", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(errorMessage(err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(sum))
}

func (h *AdherenceHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	userID := sessionUserID(r)
	sum, err := h.analyzer.Summary(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to build adherence summary", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(errorMessage(err)))
		return
	}
	data, err := GenerateAdherenceReport(sum)
	if err != nil {
		h.logger.Error("Failed to generate adherence report", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate report: %v", err)))
		return
	}

	filename := fmt.Sprintf("adherence_%s.xlsx", sum.GeneratedAt.Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
