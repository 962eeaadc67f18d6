package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hiredeck/domainkit/core/certificate"
	"github.com/hiredeck/domainkit/core/dnsrecord"
	"github.com/hiredeck/domainkit/core/dnsverify"
	"github.com/hiredeck/domainkit/core/logger"
	"github.com/hiredeck/domainkit/core/sso"
)

// Verifier runs one DNS verification pass. Satisfied by dnsverify.Verifier.
type Verifier interface {
	Verify(ctx context.Context, domain, provider string) dnsverify.Result
}

// CertificateManager issues or reuses certificates. Satisfied by
// certificate.Manager.
type CertificateManager interface {
	IssueOrRenew(ctx context.Context, domain, contactEmail string) (*certificate.Result, error)
	CheckExisting(domain string) bool
}

// Config holds service-level settings.
type Config struct {
	// PlatformHost is the canonical host tenants point their DNS records at,
	// typically an edge endpoint like edge.example.com.
	PlatformHost string `env:"PLATFORM_HOST,required"`

	// PlatformDomain is the platform's own base domain; candidates inside it
	// are rejected. Defaults to PlatformHost, which only suffices when the
	// edge host is the apex.
	PlatformDomain string `env:"PLATFORM_DOMAIN"`

	// DefaultContactEmail is the ACME contact used when a tenant has none.
	DefaultContactEmail string `env:"ACME_CONTACT_EMAIL,required"`
}

// Service coordinates the domain lifecycle components against the persisted
// tenant record. It is the only write path for domain and SSL fields.
type Service struct {
	cfg      Config
	store    Store
	records  *dnsrecord.Generator
	verifier Verifier
	certs    CertificateManager
	status   StatusCache
	log      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStatusCache sets the failure-reason cache.
func WithStatusCache(c StatusCache) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.status = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService wires the lifecycle components together.
func NewService(cfg Config, store Store, verifier Verifier, certs CertificateManager, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if verifier == nil {
		return nil, errors.New("verifier is required")
	}
	if certs == nil {
		return nil, errors.New("certificate manager is required")
	}

	records, err := dnsrecord.NewGenerator(cfg.PlatformHost)
	if err != nil {
		return nil, fmt.Errorf("platform host: %w", err)
	}
	if cfg.PlatformDomain == "" {
		cfg.PlatformDomain = cfg.PlatformHost
	}

	s := &Service{
		cfg:      cfg,
		store:    store,
		records:  records,
		verifier: verifier,
		certs:    certs,
		status:   NopStatusCache{},
		log:      logger.NewDiscard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BindDomain validates and binds a candidate domain to the tenant, clearing
// any previous verification and SSL state, and returns the DNS records the
// tenant must publish. Provider falls back to the tenant's stored SSO
// provider when empty.
func (s *Service) BindDomain(ctx context.Context, tenantID uuid.UUID, rawDomain, provider string) ([]dnsrecord.Record, error) {
	domain := dnsrecord.Normalize(rawDomain)
	if err := dnsrecord.ValidateCandidate(domain, s.cfg.PlatformDomain); err != nil {
		return nil, err
	}

	state, err := s.store.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if provider == "" {
		provider = state.SSOProvider
	}

	// Uniqueness is also enforced by the store's unique index; checking here
	// gives a clean error before any state is touched.
	if holder, err := s.store.FindByDomain(ctx, domain); err == nil && holder.TenantID != tenantID {
		return nil, ErrDomainTaken
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	records, err := s.records.Generate(domain, provider)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveDomain(ctx, tenantID, domain); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "domain bound, awaiting DNS records",
		logger.TenantID(tenantID.String()), logger.Domain(domain))

	return records, nil
}

// VerifyDomain runs one DNS verification pass against the tenant's bound
// domain and persists a successful result. DNS states that simply have not
// propagated yet are not errors; they yield verified=false.
func (s *Service) VerifyDomain(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	state, err := s.store.Get(ctx, tenantID)
	if err != nil {
		return false, err
	}
	if state.Domain == "" {
		return false, ErrDomainNotSet
	}
	if state.DomainVerified {
		return true, nil
	}

	res := s.verifier.Verify(ctx, state.Domain, state.SSOProvider)
	if !res.Verified {
		_ = s.status.SetFailure(ctx, tenantID, res.Reason)
		s.log.InfoContext(ctx, "domain verification pending",
			logger.TenantID(tenantID.String()), logger.Domain(state.Domain),
			slog.String("reason", res.Reason))
		return false, nil
	}

	if err := s.store.MarkVerified(ctx, tenantID, time.Now()); err != nil {
		return false, err
	}
	_ = s.status.ClearFailure(ctx, tenantID)

	s.log.InfoContext(ctx, "domain verified",
		logger.TenantID(tenantID.String()), logger.Domain(state.Domain),
		slog.Bool("address_match", res.AddressMatch), slog.Bool("txt_match", res.TXTMatch))

	return true, nil
}

// RequestCertificate issues (or reuses) a certificate for the tenant's
// verified domain and records the installed bundle atomically. The returned
// message is human-readable; the error classifies the failure for callers
// that need to branch on it.
func (s *Service) RequestCertificate(ctx context.Context, tenantID uuid.UUID) (string, error) {
	state, err := s.store.Get(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if state.Domain == "" {
		return "", ErrDomainNotSet
	}
	if !state.DomainVerified {
		return "", ErrDomainNotVerified
	}

	email := state.ContactEmail
	if email == "" {
		email = s.cfg.DefaultContactEmail
	}
	if email == "" {
		return "", ErrContactEmailMissing
	}

	res, err := s.certs.IssueOrRenew(ctx, state.Domain, email)
	if err != nil {
		reason := err.Error()
		_ = s.status.SetFailure(ctx, tenantID, reason)
		s.log.WarnContext(ctx, "certificate request failed",
			logger.TenantID(tenantID.String()), logger.Domain(state.Domain), logger.Error(err))
		return "", err
	}

	if err := s.store.EnableCertificate(ctx, tenantID, res.CertPath, res.KeyPath, res.Expiry); err != nil {
		return "", err
	}
	_ = s.status.ClearFailure(ctx, tenantID)

	msg := fmt.Sprintf("certificate installed, valid until %s", res.Expiry.Format(time.RFC3339))
	if !res.Issued {
		msg = fmt.Sprintf("existing certificate still valid until %s", res.Expiry.Format(time.RFC3339))
	}

	s.log.InfoContext(ctx, "certificate request completed",
		logger.TenantID(tenantID.String()), logger.Domain(state.Domain),
		slog.Bool("issued", res.Issued), slog.Time("expiry", res.Expiry))

	return msg, nil
}

// ActivateSSO validates provider settings against the verified domain,
// persists them and returns the endpoints to register with the provider.
func (s *Service) ActivateSSO(ctx context.Context, tenantID uuid.UUID, rawProvider string, settings sso.Settings) (sso.Endpoints, error) {
	provider, err := sso.ParseProvider(rawProvider)
	if err != nil {
		return sso.Endpoints{}, err
	}

	state, err := s.store.Get(ctx, tenantID)
	if err != nil {
		return sso.Endpoints{}, err
	}
	if state.Domain == "" {
		return sso.Endpoints{}, ErrDomainNotSet
	}

	endpoints, err := sso.Activate(state.Domain, state.DomainVerified, provider, settings)
	if err != nil {
		return sso.Endpoints{}, err
	}

	if err := s.store.SaveSSO(ctx, tenantID, string(provider), settings); err != nil {
		return sso.Endpoints{}, err
	}

	s.log.InfoContext(ctx, "sso activated",
		logger.TenantID(tenantID.String()), logger.Domain(state.Domain),
		slog.String("provider", string(provider)))

	return endpoints, nil
}

// DetachDomain clears the tenant's whole domain sub-record back to defaults.
func (s *Service) DetachDomain(ctx context.Context, tenantID uuid.UUID) error {
	if err := s.store.DetachDomain(ctx, tenantID); err != nil {
		return err
	}
	_ = s.status.ClearFailure(ctx, tenantID)
	return nil
}

// DomainStatus returns the last persisted state plus the most recent failure
// reason, if any.
func (s *Service) DomainStatus(ctx context.Context, tenantID uuid.UUID) (*Status, error) {
	state, err := s.store.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	lastFailure, err := s.status.LastFailure(ctx, tenantID)
	if err != nil {
		// The cache is informational only; a cache outage must not break the
		// status endpoint.
		lastFailure = ""
	}

	return &Status{
		Domain:         state.Domain,
		DomainVerified: state.DomainVerified,
		SSLEnabled:     state.SSLEnabled,
		SSLExpiry:      state.SSLExpiry,
		LastFailure:    lastFailure,
	}, nil
}
