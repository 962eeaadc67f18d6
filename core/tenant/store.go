package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hiredeck/domainkit/core/sso"
)

// Store persists tenant domain state. Every mutating method must apply its
// transition as a single atomic update so observers never see an
// inconsistent combination of fields.
type Store interface {
	// Get loads a tenant's domain state. Returns ErrNotFound when missing.
	Get(ctx context.Context, tenantID uuid.UUID) (*State, error)

	// FindByDomain returns the tenant currently holding domain, or
	// ErrNotFound.
	FindByDomain(ctx context.Context, domain string) (*State, error)

	// SaveDomain binds domain to the tenant and clears DomainVerified, the
	// verification date, SSLEnabled, cert paths and expiry as one unit.
	// Returns ErrDomainTaken when another tenant holds the domain.
	SaveDomain(ctx context.Context, tenantID uuid.UUID, domain string) error

	// MarkVerified records a successful DNS verification.
	MarkVerified(ctx context.Context, tenantID uuid.UUID, at time.Time) error

	// EnableCertificate records the installed bundle and flips SSLEnabled in
	// one atomic update.
	EnableCertificate(ctx context.Context, tenantID uuid.UUID, certPath, keyPath string, expiry time.Time) error

	// SaveSSO stores the tenant's provider choice and settings.
	SaveSSO(ctx context.Context, tenantID uuid.UUID, provider string, settings sso.Settings) error

	// DetachDomain clears the whole domain sub-record back to defaults.
	DetachDomain(ctx context.Context, tenantID uuid.UUID) error

	// ListCertificateEnabled returns every tenant with SSLEnabled=true, for
	// the renewal sweep.
	ListCertificateEnabled(ctx context.Context) ([]*State, error)
}

// StatusCache keeps the most recent failure reason per tenant for display on
// the status endpoint. Implementations may be lossy; the cache is purely
// informational.
type StatusCache interface {
	SetFailure(ctx context.Context, tenantID uuid.UUID, reason string) error
	LastFailure(ctx context.Context, tenantID uuid.UUID) (string, error)
	ClearFailure(ctx context.Context, tenantID uuid.UUID) error
}

// NopStatusCache discards failure reasons. Used when no cache backend is
// configured.
type NopStatusCache struct{}

func (NopStatusCache) SetFailure(context.Context, uuid.UUID, string) error { return nil }
func (NopStatusCache) LastFailure(context.Context, uuid.UUID) (string, error) {
	return "", nil
}
func (NopStatusCache) ClearFailure(context.Context, uuid.UUID) error { return nil }
