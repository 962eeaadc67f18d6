package sso_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiredeck/domainkit/core/sso"
)

func TestParseProvider(t *testing.T) {
	p, err := sso.ParseProvider("  github ")
	require.NoError(t, err)
	assert.Equal(t, sso.ProviderGitHub, p)

	_, err = sso.ParseProvider("OKTA")
	assert.ErrorIs(t, err, sso.ErrUnsupportedProvider)
}

func TestEndpointsFor(t *testing.T) {
	tests := []struct {
		provider sso.Provider
		want     sso.Endpoints
	}{
		{
			provider: sso.ProviderGitHub,
			want: sso.Endpoints{
				CallbackURL: "https://jobs.acme.com/auth/github/callback",
				LogoutURL:   "https://jobs.acme.com/auth/github/logout",
			},
		},
		{
			provider: sso.ProviderAzure,
			want: sso.Endpoints{
				CallbackURL: "https://jobs.acme.com/auth/saml/callback",
				LogoutURL:   "https://jobs.acme.com/auth/saml/logout",
				EntityID:    "https://jobs.acme.com/saml/metadata",
			},
		},
		{
			provider: sso.ProviderAuth0,
			want: sso.Endpoints{
				CallbackURL: "https://jobs.acme.com/auth/auth0/callback",
				LogoutURL:   "https://jobs.acme.com/auth/auth0/logout",
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			got, err := sso.EndpointsFor("Jobs.Acme.COM.", tt.provider)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateSettings(t *testing.T) {
	err := sso.ValidateSettings(sso.ProviderGitHub, sso.Settings{"client_id": "abc"})
	assert.ErrorIs(t, err, sso.ErrMissingCredential)

	err = sso.ValidateSettings(sso.ProviderGitHub, sso.Settings{"client_id": "abc", "client_secret": "  "})
	assert.ErrorIs(t, err, sso.ErrMissingCredential)

	err = sso.ValidateSettings(sso.ProviderGitHub, sso.Settings{"client_id": "abc", "client_secret": "xyz"})
	assert.NoError(t, err)

	err = sso.ValidateSettings(sso.ProviderAzure, sso.Settings{"manifest": map[string]any{"appId": "1"}})
	assert.NoError(t, err)
}

func TestActivateRefusesUnverifiedDomain(t *testing.T) {
	settings := sso.Settings{"client_id": "abc", "client_secret": "xyz"}

	_, err := sso.Activate("jobs.acme.com", false, sso.ProviderGitHub, settings)
	assert.ErrorIs(t, err, sso.ErrDomainNotVerified)

	endpoints, err := sso.Activate("jobs.acme.com", true, sso.ProviderGitHub, settings)
	require.NoError(t, err)
	assert.Equal(t, "https://jobs.acme.com/auth/github/callback", endpoints.CallbackURL)
}
