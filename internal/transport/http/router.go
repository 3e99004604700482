// Package httptransport is the thin HTTP layer over the compliance services.
// Handlers decode, delegate and encode; business rules live in the services.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"exportgate/internal/auditpack"
	"exportgate/internal/decision"
	"exportgate/internal/document"
	"exportgate/internal/org"
	"exportgate/pkg/platform/audit"
	"exportgate/pkg/platform/middleware/auth"
)

// Handler aggregates the service dependencies of the HTTP layer.
type Handler struct {
	documents *document.Service
	decisions *decision.Service
	packs     *auditpack.Assembler
	orgs      *org.Service
	auditor   *audit.Publisher
	logger    *slog.Logger
}

func NewHandler(
	documents *document.Service,
	decisions *decision.Service,
	packs *auditpack.Assembler,
	orgs *org.Service,
	auditor *audit.Publisher,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		documents: documents,
		decisions: decisions,
		packs:     packs,
		orgs:      orgs,
		auditor:   auditor,
		logger:    logger,
	}
}

// NewRouter wires all endpoints. Health and metrics are unauthenticated;
// everything else requires a bearer token.
func NewRouter(h *Handler, authMW *auth.Middleware) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestContext)
	if h.logger != nil {
		r.Use(requestLogger(h.logger))
	}
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authMW.Handler)

		r.Route("/documents/{documentID}", func(r chi.Router) {
			r.Post("/transitions", h.handleDocumentTransition)
			r.Get("/transitions", h.handleDocumentHistory)
			r.Post("/expire", h.handleDocumentExpire)
		})

		r.Route("/shipments/{shipmentID}", func(r chi.Router) {
			r.Post("/evaluate", h.handleEvaluate)
			r.Get("/report", h.handleLatestReport)
			r.Get("/report/history", h.handleReportHistory)
			r.Post("/override", h.handleOverride)
			r.Post("/audit-pack", h.handleGeneratePack)
			r.Get("/audit-pack", h.handleGetPack)
			r.Get("/audit-log", h.handleAuditLog)
		})

		r.Route("/organizations", func(r chi.Router) {
			r.Post("/", h.handleCreateOrganization)
			r.Get("/{organizationID}", h.handleGetOrganization)
			r.Post("/{organizationID}/suspend", h.handleSuspendOrganization)
			r.Post("/{organizationID}/reinstate", h.handleReinstateOrganization)
		})
	})

	return r
}
