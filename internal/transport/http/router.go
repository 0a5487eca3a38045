package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vetcred/internal/application"
	"vetcred/internal/auth"
	"vetcred/internal/card"
	"vetcred/internal/city"
	"vetcred/internal/member"
	"vetcred/internal/platform/metrics"
	"vetcred/internal/platform/middleware"
	"vetcred/internal/qrtoken"
	"vetcred/internal/renewal"
)

const requestTimeout = 30 * time.Second

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler bundles the domain services behind the HTTP surface. It stays
// thin: parsing, principal plumbing, and error translation only.
type Handler struct {
	logger       *slog.Logger
	metrics      *metrics.Metrics
	validator    middleware.PrincipalValidator
	auth         *auth.Service
	applications *application.Service
	members      *member.Service
	renewals     *renewal.Service
	tokens       *qrtoken.Service
	cards        *card.Service
	cities       *city.Service
	health       map[string]HealthChecker
}

type Config struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Validator    middleware.PrincipalValidator
	Auth         *auth.Service
	Applications *application.Service
	Members      *member.Service
	Renewals     *renewal.Service
	Tokens       *qrtoken.Service
	Cards        *card.Service
	Cities       *city.Service
	Health       map[string]HealthChecker
}

func NewHandler(cfg Config) *Handler {
	return &Handler{
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		validator:    cfg.Validator,
		auth:         cfg.Auth,
		applications: cfg.Applications,
		members:      cfg.Members,
		renewals:     cfg.Renewals,
		tokens:       cfg.Tokens,
		cards:        cfg.Cards,
		cities:       cfg.Cities,
		health:       cfg.Health,
	}
}

// NewRouter wires the full route tree.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Metrics(h.metrics))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.handleLogin)

		r.Post("/applications", h.handleSubmitApplication)
		r.Get("/applications/status/{trackingToken}", h.handleApplicationStatus)
		r.Post("/renewals", h.handleSubmitRenewal)

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(h.validator))
			r.Get("/cards/{token}", h.handleScan)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.validator, h.logger))

			r.Get("/applications", h.handleListApplications)
			r.Post("/applications/{id}/approve", h.handleApproveApplication)
			r.Post("/applications/{id}/reject", h.handleRejectApplication)

			r.Get("/members", h.handleListMembers)
			r.Get("/members/{id}", h.handleGetMember)
			r.Post("/members/{id}/suspend", h.handleSuspendMember)
			r.Post("/members/{id}/unsuspend", h.handleUnsuspendMember)
			r.Post("/members/{id}/renew", h.handleRenewMember)

			r.Get("/renewals", h.handleListRenewals)
			r.Post("/renewals/{id}/approve", h.handleApproveRenewal)
			r.Post("/renewals/{id}/reject", h.handleRejectRenewal)

			r.Post("/qr/batches", h.handleMintBatch)
			r.Get("/qr/batches", h.handleListBatches)
			r.Get("/qr/batches/{id}/stats", h.handleBatchStats)

			r.Get("/cities", h.handleListCities)
			r.Post("/cities", h.handleCreateCity)
			r.Patch("/cities/{id}", h.handleUpdateCity)
			r.Delete("/cities/{id}", h.handleDeleteCity)

			r.Get("/accounts", h.handleListAccounts)
			r.Post("/accounts", h.handleCreateAccount)
			r.Put("/accounts/{id}/cities", h.handleAssignAccountCities)
			r.Patch("/accounts/{id}", h.handleUpdateAccount)
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(h.health))
	for name, checker := range h.health {
		if err := checker.Health(r.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, map[string]any{
		"status": http.StatusText(status),
		"checks": checks,
	})
}
