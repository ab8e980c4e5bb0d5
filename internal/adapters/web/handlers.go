// Package web exposes the ERP services as a JSON HTTP API.
package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"coconut-erp/internal/app"
	"coconut-erp/internal/apperror"
)

// Handler holds the application services and the chi router.
type Handler struct {
	app       *app.Application
	logger    *slog.Logger
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(a *app.Application, allowedOrigins, jwtSecret string) http.Handler {
	h := &Handler{app: a, logger: a.Logger, jwtSecret: jwtSecret}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Tracing)
	r.Use(Logger(h.logger))
	r.Use(h.Recoverer)
	r.Use(CORS(allowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Method(http.MethodGet, "/metrics", a.Metrics.Handler())

	// ── Protected API (401 JSON if unauthenticated) ───────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		r.Route("/api/payables", func(r chi.Router) {
			r.Get("/", h.listPayables)
			r.Get("/overdue", h.overduePayables)
			r.Get("/{id}", h.getPayable)
			r.Get("/{id}/pending", h.payablePending)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(RoleFinance))
				r.Post("/", h.createPayable)
				r.Post("/{id}/pay", h.payPayable)
				r.Post("/{id}/cancel", h.cancelPayable)
			})
		})
		r.Route("/api/receivables", func(r chi.Router) {
			r.Get("/", h.listReceivables)
			r.Get("/overdue", h.overdueReceivables)
			r.Get("/{id}", h.getReceivable)
			r.Get("/{id}/pending", h.receivablePending)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(RoleFinance))
				r.Post("/", h.createReceivable)
				r.Post("/{id}/receive", h.receiveReceivable)
				r.Post("/{id}/cancel", h.cancelReceivable)
			})
		})
		r.Get("/api/cash-flow", h.cashFlow)

		r.Route("/api/quality", func(r chi.Router) {
			r.Get("/analyses", h.listAnalyses)
			r.Get("/analyses/{id}", h.getAnalysis)
			r.Get("/ncs", h.listNCs)
			r.Get("/ncs/{id}", h.getNC)
			r.Get("/metrics", h.qualityMetrics)
			r.Get("/producer-scores", h.producerScores)
			r.Get("/grade-distribution", h.gradeDistribution)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(RoleQuality))
				r.Post("/analyses", h.createAnalysis)
				r.Post("/ncs", h.createNC)
				r.Post("/ncs/{id}/start-analysis", h.startNCAnalysis)
				r.Post("/ncs/{id}/corrective-action", h.startCorrectiveAction)
				r.Post("/ncs/{id}/resolve", h.resolveNC)
				r.Post("/ncs/{id}/close", h.closeNC)
			})
		})

		r.Route("/api/stock", func(r chi.Router) {
			r.Get("/items", h.listItems)
			r.Get("/items/{id}", h.getItem)
			r.Get("/items/{id}/movements", h.listMovements)
			r.Get("/alerts/low-stock", h.lowStock)
			r.Get("/batches", h.listBatches)
			r.Get("/batches/expiring", h.expiringBatches)
			r.Get("/batches/{id}", h.getBatch)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(RoleWarehouse))
				r.Post("/items", h.createItem)
				r.Patch("/items/{id}", h.updateItem)
				r.Delete("/items/{id}", h.deleteItem)
				r.Post("/movements", h.createMovement)
				r.Post("/batches", h.createBatch)
				r.Post("/batches/{id}/reserve", h.reserveBatch)
				r.Post("/batches/{id}/ship", h.shipBatch)
			})
		})

		r.Get("/api/reports/overdue", h.overdueReport)
		r.Get("/api/reports/quality", h.qualityReport)
	})

	return r
}

// health reports service status and store reachability.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
		Store  string `json:"store"`
	}
	if err := h.app.Ping(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "health check failed", "error", err)
		writeStatus(w, http.StatusServiceUnavailable, successResponse{
			Success: false,
			Data:    response{Status: "degraded", Store: "unreachable"},
		})
		return
	}
	writeJSON(w, response{Status: "ok", Store: "ok"})
}

// ── Request parsing ───────────────────────────────────────────────────────────

// idParam parses the {id} URL parameter.
func idParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apperror.InvalidType("id", "inteiro positivo", raw)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; absent yields def.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.InvalidType(name, "inteiro", raw)
	}
	return v, nil
}

// queryTime parses an optional RFC 3339 or YYYY-MM-DD query parameter.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperror.InvalidDate(name, raw)
}

// queryEndTime is queryTime for an inclusive upper bound: a bare YYYY-MM-DD
// covers the whole day.
func queryEndTime(r *http.Request, name string) (*time.Time, error) {
	t, err := queryTime(r, name)
	if t == nil || err != nil {
		return t, err
	}
	if _, perr := time.Parse(time.DateOnly, r.URL.Query().Get(name)); perr == nil {
		end := endOfDay(*t)
		return &end, nil
	}
	return t, nil
}

func endOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
