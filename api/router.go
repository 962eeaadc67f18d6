package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/hiredeck/domainkit/core/dnsrecord"
	"github.com/hiredeck/domainkit/core/logger"
	"github.com/hiredeck/domainkit/core/sso"
	"github.com/hiredeck/domainkit/core/tenant"
)

// tenantIDHeader carries the authenticated tenant, set by the fronting proxy.
const tenantIDHeader = "X-Tenant-ID"

// Service is the slice of the tenant service the API needs. Satisfied by
// *tenant.Service.
type Service interface {
	BindDomain(ctx context.Context, tenantID uuid.UUID, domain, provider string) ([]dnsrecord.Record, error)
	VerifyDomain(ctx context.Context, tenantID uuid.UUID) (bool, error)
	RequestCertificate(ctx context.Context, tenantID uuid.UUID) (string, error)
	DomainStatus(ctx context.Context, tenantID uuid.UUID) (*tenant.Status, error)
	DetachDomain(ctx context.Context, tenantID uuid.UUID) error
	ActivateSSO(ctx context.Context, tenantID uuid.UUID, provider string, settings sso.Settings) (sso.Endpoints, error)
}

// Healthcheck probes one dependency. Registered checks run on GET /health.
type Healthcheck func(context.Context) error

// Router builds the admin HTTP handler.
type Router struct {
	svc    Service
	log    *slog.Logger
	checks map[string]Healthcheck
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRouterLogger sets the logger.
func WithRouterLogger(log *slog.Logger) RouterOption {
	return func(r *Router) {
		if log != nil {
			r.log = log
		}
	}
}

// WithHealthcheck registers a named dependency probe on GET /health.
func WithHealthcheck(name string, check Healthcheck) RouterOption {
	return func(r *Router) {
		if name != "" && check != nil {
			r.checks[name] = check
		}
	}
}

// NewRouter creates the admin HTTP handler over svc.
func NewRouter(svc Service, opts ...RouterOption) http.Handler {
	r := &Router{
		svc:    svc,
		log:    logger.NewDiscard(),
		checks: make(map[string]Healthcheck),
	}
	for _, opt := range opts {
		opt(r)
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(6 * time.Minute)) // certificate issuance is slow

	mux.Get("/health", r.handleHealth)

	mux.Route("/domains", func(mux chi.Router) {
		mux.Post("/", r.handleBindDomain)
		mux.Post("/verify", r.handleVerifyDomain)
		mux.Post("/certificate", r.handleRequestCertificate)
		mux.Get("/status", r.handleDomainStatus)
		mux.Delete("/", r.handleDetachDomain)
	})
	mux.Post("/sso/activate", r.handleActivateSSO)

	return mux
}

// tenantID extracts the acting tenant from the request. Writes the error
// response itself and reports ok=false when the header is missing or invalid.
func (r *Router) tenantID(w http.ResponseWriter, req *http.Request) (uuid.UUID, bool) {
	raw := req.Header.Get(tenantIDHeader)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "missing_tenant", "X-Tenant-ID header is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_tenant", "X-Tenant-ID is not a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	status := map[string]string{}
	healthy := true
	for name, check := range r.checks {
		if err := check(req.Context()); err != nil {
			status[name] = err.Error()
			healthy = false
		} else {
			status[name] = "ok"
		}
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
