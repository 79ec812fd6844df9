// Package httpapi exposes the engine over HTTP as JSON under /api/v1.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tycooncore/internal/engine"
	"tycooncore/internal/savestore"
	"tycooncore/pkg/domain"
)

const maxBodyBytes = 1 << 16

// Handler routes HTTP requests to an engine.Service.
type Handler struct {
	svc      *engine.Service
	events   http.Handler
	gatherer prometheus.Gatherer
	log      *slog.Logger
	router   chi.Router
}

// Option configures a Handler.
type Option func(*Handler)

// WithEvents serves h (usually a wsbridge.Hub) at /api/v1/events.
func WithEvents(h http.Handler) Option {
	return func(x *Handler) { x.events = h }
}

// WithMetrics serves g at /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(x *Handler) { x.gatherer = g }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(x *Handler) {
		if l != nil {
			x.log = l
		}
	}
}

// NewHandler builds the router.
func NewHandler(svc *engine.Service, opts ...Option) *Handler {
	h := &Handler{svc: svc, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if h.events != nil {
			r.Handle("/events", h.events)
		}

		r.Post("/game", h.newGame)
		r.Get("/save", h.getSave)
		r.Delete("/save", h.reset)
		r.Post("/save/load", h.load)
		r.Post("/save/persist", h.persist)
		r.Patch("/settings", h.updateSettings)

		r.Get("/backups", h.listBackups)
		r.Post("/backups", h.backup)
		r.Post("/backups/{key}/restore", h.restoreBackup)
		r.Get("/archive", h.listArchived)
		r.Post("/archive", h.archive)

		r.Get("/ranks", h.ranks)
		r.Get("/upgrades/cost", h.upgradeCost)

		r.Get("/slots", h.slots)
		r.Post("/slots/{index}/buy", h.buySlot)
		r.Post("/slots/{index}/sell", h.sellSlot)

		r.Get("/candidates", h.candidates)
		r.Post("/employees", h.hire)
		r.Delete("/employees/{id}", h.fire)
		r.Post("/employees/{id}/assign", h.assign)
		r.Post("/employees/{id}/unassign", h.unassign)

		r.Get("/reassignment", h.pendingMove)
		r.Get("/reassignment/preview", h.previewMove)
		r.Post("/reassignment/confirm", h.confirmMove)
		r.Delete("/reassignment", h.cancelMove)

		r.Post("/upgrades", h.requestUpgrade)
		r.Get("/upgrades/pending", h.pendingUpgrade)
		r.Post("/upgrades/confirm", h.confirmUpgrade)
		r.Delete("/upgrades/pending", h.cancelUpgrade)

		r.Get("/bars/{id}/breakdown", h.breakdown)
		r.Get("/bars/{id}/stats/{category}", h.aggregateStat)
		r.Get("/report", h.report)
		r.Post("/period/advance", h.advance)
	})
	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// statusFor maps engine errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	var (
		validation  *domain.ValidationError
		integrity   *domain.IntegrityError
		persistence *domain.PersistenceError
		violation   domain.RuleViolationError
	)
	switch {
	case errors.As(err, &validation):
		switch validation.Reason {
		case domain.ReasonInvalidInput:
			return http.StatusBadRequest, string(validation.Reason)
		case domain.ReasonNothingPending, domain.ReasonSlotUnavailable, domain.ReasonLastRestaurant:
			return http.StatusConflict, string(validation.Reason)
		default:
			return http.StatusUnprocessableEntity, string(validation.Reason)
		}
	case errors.As(err, &integrity):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &violation):
		return http.StatusConflict, "rule_violation"
	case errors.As(err, &persistence):
		if persistence.Quota {
			return http.StatusInsufficientStorage, "quota_exceeded"
		}
		return http.StatusInternalServerError, "persistence"
	case errors.Is(err, domain.ErrNoActiveSave):
		return http.StatusConflict, "no_active_save"
	case errors.Is(err, savestore.ErrNotBackup):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, savestore.ErrArchiveDisabled):
		return http.StatusServiceUnavailable, "archive_disabled"
	}
	return http.StatusInternalServerError, ""
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, reason := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Reason: reason})
}

// decode reads an optional JSON body into v. An empty body leaves v as is.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return domain.Validationf(domain.ReasonInvalidInput, "malformed request body: %v", err)
}

func pathIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Validationf(domain.ReasonInvalidInput, "slot index %q is not a number", raw)
	}
	return n, nil
}
