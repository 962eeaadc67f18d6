package dnsrecord

import "errors"

var (
	// ErrEmptyDomain is returned when the candidate domain is empty.
	ErrEmptyDomain = errors.New("domain is required")

	// ErrEmptyProvider is returned when the SSO provider identifier is empty.
	ErrEmptyProvider = errors.New("sso provider is required")

	// ErrInvalidDomain is returned when the candidate domain is not a usable hostname.
	ErrInvalidDomain = errors.New("invalid domain name")

	// ErrPlatformDomain is returned when the candidate domain belongs to the platform itself.
	ErrPlatformDomain = errors.New("cannot bind the platform's own domain")
)
