package tenant

import "errors"

var (
	// ErrNotFound is returned when no tenant exists for the given ID.
	ErrNotFound = errors.New("tenant not found")

	// ErrDomainTaken is returned when another tenant already holds the domain.
	ErrDomainTaken = errors.New("domain already bound to another tenant")

	// ErrDomainNotSet is returned when an operation needs a bound domain but
	// the tenant has none.
	ErrDomainNotSet = errors.New("tenant has no custom domain")

	// ErrDomainNotVerified guards certificate issuance and SSO activation.
	ErrDomainNotVerified = errors.New("domain is not verified")

	// ErrContactEmailMissing is returned when no ACME contact email can be
	// determined for the tenant.
	ErrContactEmailMissing = errors.New("no contact email for tenant")
)
