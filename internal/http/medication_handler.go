package httpapi

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// MedicationDeleter soft delete entry point
type MedicationDeleter interface {
	Delete(ctx context.Context, profileID, medicationID string) error
}

// MedicationHandler medication endpoints
type MedicationHandler struct {
	medications MedicationDeleter
	logger      *zap.Logger
}

func NewMedicationHandler(medications MedicationDeleter, logger *zap.Logger) *MedicationHandler {
	return &MedicationHandler{medications: medications, logger: logger}
}

// ServeHTTP DELETE /api/v1/medications/{id}
func (h *MedicationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	medID := strings.TrimPrefix(r.URL.Path, "/api/v1/medications/")
	if medID == "" || strings.Contains(medID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	if err := h.medications.Delete(r.Context(), userID, medID); err != nil {
		h.logger.Warn("Failed to delete medication", zap.String("user_id", userID), zap.String("medication_id", medID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(errorMessage(err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"medication_id": medID, "deleted": true}))
}
