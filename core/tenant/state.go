package tenant

import (
	"time"

	"github.com/google/uuid"

	"github.com/hiredeck/domainkit/core/sso"
)

// State is the persisted custom-domain sub-record of a tenant. The record is
// created empty when the tenant account is created and cleared back to
// defaults when the tenant detaches its domain.
type State struct {
	TenantID uuid.UUID

	// Domain is the custom hostname, empty when the feature is unused.
	// Globally unique across tenants while set.
	Domain string

	// DomainVerified flips to true only when DNS verification succeeds
	// against the current Domain value.
	DomainVerified         bool
	DomainVerificationDate *time.Time

	// SSOProvider and SSOSettings may exist independently of domain state,
	// but activation against an unverified domain is refused.
	SSOProvider string
	SSOSettings sso.Settings

	// SSLEnabled is true only when DomainVerified is true and a readable
	// cert/key pair exists on disk.
	SSLEnabled  bool
	SSLCertPath string
	SSLKeyPath  string

	// SSLExpiry is always read back from the certificate file, never
	// hand-set.
	SSLExpiry *time.Time

	// ContactEmail is the tenant's operational contact, used as the ACME
	// account email.
	ContactEmail string
}

// DaysUntilExpiry returns the number of whole days left before the
// certificate expires, relative to now. Returns false when no expiry is
// recorded.
func (s *State) DaysUntilExpiry(now time.Time) (int, bool) {
	if s.SSLExpiry == nil {
		return 0, false
	}
	return int(s.SSLExpiry.Sub(now).Hours() / 24), true
}

// Status is the read-only view the admin layer displays.
type Status struct {
	Domain         string     `json:"domain,omitempty"`
	DomainVerified bool       `json:"domain_verified"`
	SSLEnabled     bool       `json:"ssl_enabled"`
	SSLExpiry      *time.Time `json:"ssl_expiry,omitempty"`

	// LastFailure carries the most recent operational failure reason, if any.
	LastFailure string `json:"last_failure,omitempty"`
}
