package sso

import "errors"

var (
	// ErrUnsupportedProvider is returned for provider identifiers this
	// platform does not integrate with.
	ErrUnsupportedProvider = errors.New("unsupported sso provider")

	// ErrDomainNotVerified is returned when activation is attempted against a
	// domain that has not passed DNS verification.
	ErrDomainNotVerified = errors.New("domain is not verified")

	// ErrMissingCredential is returned when provider-required settings are
	// absent from the tenant's SSO configuration.
	ErrMissingCredential = errors.New("missing required sso credential")

	// ErrEmptyDomain is returned when no domain is supplied.
	ErrEmptyDomain = errors.New("domain is required")
)
