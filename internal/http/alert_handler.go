package httpapi

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

// AlertFeed alert read API
type AlertFeed interface {
	Alerts(ctx context.Context, profileID string, force bool) ([]models.Alert, error)
	Dismiss(ctx context.Context, profileID, alertID string) error
}

// AlertHandler alert endpoints
type AlertHandler struct {
	feed   AlertFeed
	logger *zap.Logger
}

func NewAlertHandler(feed AlertFeed, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{feed: feed, logger: logger}
}

// ServeHTTP
//   - GET  /api/v1/alerts[?force=true]
//   - POST /api/v1/alerts/{id}/dismiss
func (h *AlertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/alerts" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListAlerts(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	alertID, action, ok := strings.Cut(rest, "/")
	if !ok || alertID == "" || action != "dismiss" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.DismissAlert(w, r, alertID)
}

// ListAlerts current alert set, grouped by severity order
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	userID := sessionUserID(r)

	alerts, err := h.feed.Alerts(r.Context(), userID, parseBool(r.URL.Query().Get("force")))
	if err != nil {
		h.logger.Error("Failed to evaluate alerts", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(errorMessage(err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": alerts,
		"total": len(alerts),
	}))
}

func (h *AlertHandler) DismissAlert(w http.ResponseWriter, r *http.Request, alertID string) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}

	if err := h.feed.Dismiss(r.Context(), userID, alertID); err != nil {
		h.logger.Error("Failed to dismiss alert",
			zap.String("user_id", userID),
			zap.String("alert_id", alertID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(errorMessage(err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"alert_id": alertID, "dismissed": true}))
}
