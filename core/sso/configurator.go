package sso

import (
	"fmt"
	"strings"

	"github.com/hiredeck/domainkit/core/dnsrecord"
)

// Provider identifies a supported single sign-on integration.
type Provider string

const (
	ProviderGitHub Provider = "GITHUB"
	ProviderAzure  Provider = "AZURE"
	ProviderSAML   Provider = "SAML"
	ProviderAuth0  Provider = "AUTH0"
)

// ParseProvider normalizes a raw provider identifier.
func ParseProvider(raw string) (Provider, error) {
	p := Provider(strings.ToUpper(strings.TrimSpace(raw)))
	switch p {
	case ProviderGitHub, ProviderAzure, ProviderSAML, ProviderAuth0:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, raw)
	}
}

// Settings holds the opaque, provider-specific configuration a tenant
// uploads (credentials, manifest, metadata).
type Settings map[string]any

// Endpoints are the externally facing URLs bound to a tenant's verified
// domain.
type Endpoints struct {
	CallbackURL string `json:"callback_url"`
	LogoutURL   string `json:"logout_url"`

	// EntityID is populated for SAML-flavoured providers only.
	EntityID string `json:"entity_id,omitempty"`
}

// requiredFields lists the settings each provider must supply before
// activation. OAuth-style providers need client credentials; metadata-based
// providers need their uploaded document.
var requiredFields = map[Provider][]string{
	ProviderGitHub: {"client_id", "client_secret"},
	ProviderAzure:  {"manifest"},
	ProviderSAML:   {"metadata_xml"},
	ProviderAuth0:  {"domain", "client_id", "client_secret"},
}

// EndpointsFor substitutes domain into the provider's fixed URL templates.
func EndpointsFor(domain string, provider Provider) (Endpoints, error) {
	domain = dnsrecord.Normalize(domain)
	if domain == "" {
		return Endpoints{}, ErrEmptyDomain
	}

	base := "https://" + domain
	switch provider {
	case ProviderGitHub:
		return Endpoints{
			CallbackURL: base + "/auth/github/callback",
			LogoutURL:   base + "/auth/github/logout",
		}, nil
	case ProviderAzure, ProviderSAML:
		return Endpoints{
			CallbackURL: base + "/auth/saml/callback",
			LogoutURL:   base + "/auth/saml/logout",
			EntityID:    base + "/saml/metadata",
		}, nil
	case ProviderAuth0:
		return Endpoints{
			CallbackURL: base + "/auth/auth0/callback",
			LogoutURL:   base + "/auth/auth0/logout",
		}, nil
	default:
		return Endpoints{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
}

// ValidateSettings checks that all provider-required fields are present and
// non-empty.
func ValidateSettings(provider Provider, settings Settings) error {
	fields, ok := requiredFields[provider]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}

	for _, field := range fields {
		value, present := settings[field]
		if !present {
			return fmt.Errorf("%w: %s requires %q", ErrMissingCredential, provider, field)
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: %s requires %q", ErrMissingCredential, provider, field)
		}
	}
	return nil
}

// Activate validates the provider settings against a verified domain and
// returns the endpoints to register with the provider. The domainVerified
// flag comes from the tenant record; unverified domains are always refused.
func Activate(domain string, domainVerified bool, provider Provider, settings Settings) (Endpoints, error) {
	if !domainVerified {
		return Endpoints{}, ErrDomainNotVerified
	}
	if err := ValidateSettings(provider, settings); err != nil {
		return Endpoints{}, err
	}
	return EndpointsFor(domain, provider)
}
