package dnsrecord_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiredeck/domainkit/core/dnsrecord"
)

func TestGenerateRecordSet(t *testing.T) {
	gen, err := dnsrecord.NewGenerator("edge.hiredeck.com")
	require.NoError(t, err)

	records, err := gen.Generate("foo.example.com", "GITHUB")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, dnsrecord.TypeCNAME, records[0].Type)
	assert.Equal(t, "foo.example.com", records[0].Name)
	assert.Equal(t, "edge.hiredeck.com", records[0].Value)

	assert.Equal(t, dnsrecord.TypeTXT, records[1].Type)
	assert.Regexp(t, regexp.MustCompile(`^v=sso provider=GITHUB verify=[0-9a-f]{16}$`), records[1].Value)
}

func TestGenerateUsesARecordForIPTarget(t *testing.T) {
	gen, err := dnsrecord.NewGenerator("203.0.113.10")
	require.NoError(t, err)

	records, err := gen.Generate("foo.example.com", "SAML")
	require.NoError(t, err)

	assert.Equal(t, dnsrecord.TypeA, records[0].Type)
	assert.Equal(t, "203.0.113.10", records[0].Value)
}

func TestGenerateIsDeterministic(t *testing.T) {
	gen, err := dnsrecord.NewGenerator("edge.hiredeck.com")
	require.NoError(t, err)

	first, err := gen.Generate("foo.example.com", "GITHUB")
	require.NoError(t, err)
	second, err := gen.Generate("foo.example.com", "GITHUB")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChallengeValueNormalizesInput(t *testing.T) {
	base := dnsrecord.ChallengeValue("foo.example.com", "GITHUB")

	assert.Equal(t, base, dnsrecord.ChallengeValue("FOO.Example.COM.", "github"))
	assert.NotEqual(t, base, dnsrecord.ChallengeValue("foo.example.com", "AZURE"))
	assert.NotEqual(t, base, dnsrecord.ChallengeValue("bar.example.com", "GITHUB"))
}

func TestGenerateRejectsEmptyInput(t *testing.T) {
	gen, err := dnsrecord.NewGenerator("edge.hiredeck.com")
	require.NoError(t, err)

	_, err = gen.Generate("", "GITHUB")
	assert.ErrorIs(t, err, dnsrecord.ErrEmptyDomain)

	_, err = gen.Generate("foo.example.com", "  ")
	assert.ErrorIs(t, err, dnsrecord.ErrEmptyProvider)
}

func TestValidateCandidate(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		wantErr error
	}{
		{name: "valid subdomain", domain: "jobs.acme.com"},
		{name: "empty", domain: "", wantErr: dnsrecord.ErrEmptyDomain},
		{name: "wildcard", domain: "*.acme.com", wantErr: dnsrecord.ErrInvalidDomain},
		{name: "bare label", domain: "acme", wantErr: dnsrecord.ErrInvalidDomain},
		{name: "ip literal", domain: "203.0.113.10", wantErr: dnsrecord.ErrInvalidDomain},
		{name: "empty label", domain: "jobs..acme.com", wantErr: dnsrecord.ErrInvalidDomain},
		{name: "platform host itself", domain: "hiredeck.com", wantErr: dnsrecord.ErrPlatformDomain},
		{name: "platform subdomain", domain: "evil.hiredeck.com", wantErr: dnsrecord.ErrPlatformDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dnsrecord.ValidateCandidate(tt.domain, "hiredeck.com")
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
