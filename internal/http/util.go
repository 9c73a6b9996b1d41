package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// sessionUserID the X-User-Id header identifies the profile; "" when absent
func sessionUserID(r *http.Request) string {
	if uid := r.Header.Get("X-User-Id"); uid != "null" {
		return uid
	}
	return ""
}

// userIDFromReq mutations decline to act without a session
func userIDFromReq(w http.ResponseWriter, r *http.Request) (string, bool) {
	if uid := sessionUserID(r); uid != "" {
		return uid, true
	}
	writeJSON(w, http.StatusOK, Fail("user_id is required"))
	return "", false
}

// errorMessage short client-facing text for domain errors
func errorMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "not found"
	case errors.Is(err, models.ErrDoseAlreadyResolved):
		return "dose already resolved"
	case errors.Is(err, models.ErrInvalidStatus):
		return "invalid status"
	case errors.Is(err, models.ErrInvalidQuantity):
		return "invalid quantity"
	case errors.Is(err, models.ErrStockNotTracked):
		return "stock not tracked"
	default:
		return err.Error()
	}
}
