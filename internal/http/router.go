package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router thin wrapper over http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes liveness probe
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}

// RegisterAlertRoutes alert feed and dismissal
func (r *Router) RegisterAlertRoutes(h *AlertHandler) {
	r.Handle("/api/v1/alerts", h.ServeHTTP)
	r.Handle("/api/v1/alerts/", h.ServeHTTP)
}

// RegisterAdherenceRoutes dashboard summary and spreadsheet export
func (r *Router) RegisterAdherenceRoutes(h *AdherenceHandler) {
	r.Handle("/api/v1/adherence", h.ServeHTTP)
	r.Handle("/api/v1/adherence/", h.ServeHTTP)
}

// RegisterDoseRoutes generation and status transitions
func (r *Router) RegisterDoseRoutes(h *DoseHandler) {
	r.Handle("/api/v1/doses/", h.ServeHTTP)
}

// RegisterStockRoutes stock read model and mutations
func (r *Router) RegisterStockRoutes(h *StockHandler) {
	r.Handle("/api/v1/stock/", h.ServeHTTP)
}

// RegisterMedicationRoutes medication soft delete
func (r *Router) RegisterMedicationRoutes(h *MedicationHandler) {
	r.Handle("/api/v1/medications/", h.ServeHTTP)
}
