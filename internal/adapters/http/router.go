package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/playnatela/volante-express/internal/application"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
)

// ReadinessCheck reports whether a backing dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Options struct {
	WebhookSecret  string
	MaxBodyBytes   int64
	MaxUploadBytes int64
	Readiness      []ReadinessCheck
	// EvidencePath and EvidenceDir serve locally stored evidence when both are set.
	EvidencePath string
	EvidenceDir  string
}

// Handler is the HTTP adapter entrypoint for settlement use cases.
type Handler struct {
	service  *application.Service
	verifier ports.TokenVerifier
	opts     Options
}

func NewHandler(service *application.Service, verifier ports.TokenVerifier, opts Options) *Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Handler{service: service, verifier: verifier, opts: opts}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Post("/webhooks/{source}", handler.ingestWebhook)

	if prefix := strings.TrimRight(handler.opts.EvidencePath, "/"); strings.HasPrefix(prefix, "/") && handler.opts.EvidenceDir != "" {
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(handler.opts.EvidenceDir))))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(handler.authMiddleware)

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", handler.startAppointment)
			r.Get("/", handler.listAppointments)
			r.Get("/{appointment_id}", handler.getAppointment)
			r.Post("/{appointment_id}/complete", handler.completeAppointment)
		})

		r.Route("/me", func(r chi.Router) {
			r.Get("/statement", handler.myStatement)
			r.Get("/commission/today", handler.myCommissionToday)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireRole(domain.RoleAdmin))

			r.Get("/regions", handler.listRegions)
			r.Post("/regions", handler.createRegion)
			r.Put("/installers/{installer_id}", handler.upsertInstaller)

			r.Get("/accounts", handler.listAccounts)
			r.Post("/accounts", handler.createAccount)
			r.Delete("/accounts/{account_id}", handler.deleteAccount)
			r.Post("/accounts/{account_id}/default", handler.setDefaultAccount)
			r.Post("/expenses", handler.recordExpense)
			r.Post("/transfers", handler.transfer)

			r.Get("/rates", handler.listRates)
			r.Put("/rates", handler.upsertRate)

			r.Get("/inventory", handler.listInventory)
			r.Post("/inventory", handler.createInventoryItem)
			r.Patch("/inventory/{item_id}", handler.adjustInventory)

			r.Get("/reports/dashboard", handler.dashboard)
			r.Get("/reports/commissions", handler.commissionReport)
		})
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	for _, check := range h.opts.Readiness {
		if err := check.Check(r.Context()); err != nil {
			logHTTPOperationError(r.Context(), "readyz", http.StatusServiceUnavailable, "NOT_READY", check.Name, err)
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", check.Name+" unavailable")
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
}
