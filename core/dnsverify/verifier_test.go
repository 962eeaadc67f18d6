package dnsverify_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiredeck/domainkit/core/dnsrecord"
	"github.com/hiredeck/domainkit/core/dnsverify"
)

// fakeResolver serves canned DNS answers. Missing entries behave like
// NXDOMAIN.
type fakeResolver struct {
	cnames map[string]string
	ips    map[string][]net.IPAddr
	txts   map[string][]string
}

func (f *fakeResolver) LookupCNAME(_ context.Context, host string) (string, error) {
	if c, ok := f.cnames[host]; ok {
		return c, nil
	}
	return "", &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

func (f *fakeResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	if ips, ok := f.ips[host]; ok {
		return ips, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

func (f *fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	if txts, ok := f.txts[name]; ok {
		return txts, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func newVerifier(t *testing.T, resolver dnsverify.Resolver) *dnsverify.Verifier {
	t.Helper()

	v, err := dnsverify.New("edge.hiredeck.com", dnsverify.WithResolver(resolver))
	require.NoError(t, err)
	return v
}

func TestVerifyCNAMEMatch(t *testing.T) {
	v := newVerifier(t, &fakeResolver{
		cnames: map[string]string{"foo.example.com": "edge.hiredeck.com."},
	})

	res := v.Verify(context.Background(), "foo.example.com", "GITHUB")
	assert.True(t, res.Verified)
	assert.True(t, res.AddressMatch)
	assert.False(t, res.TXTMatch)
}

func TestVerifyNoRecords(t *testing.T) {
	v := newVerifier(t, &fakeResolver{})

	res := v.Verify(context.Background(), "foo.example.com", "GITHUB")
	assert.False(t, res.Verified)
	assert.True(t, res.Unresolved)
	assert.NotEmpty(t, res.Reason)
}

func TestVerifyTXTAloneSuffices(t *testing.T) {
	v := newVerifier(t, &fakeResolver{
		cnames: map[string]string{"foo.example.com": "wrong.example.net."},
		txts: map[string][]string{
			"foo.example.com": {
				"some-unrelated-record",
				dnsrecord.ChallengeValue("foo.example.com", "GITHUB"),
			},
		},
	})

	res := v.Verify(context.Background(), "foo.example.com", "GITHUB")
	assert.True(t, res.Verified)
	assert.False(t, res.AddressMatch)
	assert.True(t, res.TXTMatch)
}

func TestVerifyTXTWrongProvider(t *testing.T) {
	v := newVerifier(t, &fakeResolver{
		txts: map[string][]string{
			"foo.example.com": {dnsrecord.ChallengeValue("foo.example.com", "AZURE")},
		},
	})

	res := v.Verify(context.Background(), "foo.example.com", "GITHUB")
	assert.False(t, res.Verified)
	assert.False(t, res.Unresolved)
	assert.NotEmpty(t, res.Reason)
}

func TestVerifyApexFallbackToARecords(t *testing.T) {
	shared := net.IPAddr{IP: net.ParseIP("203.0.113.10")}
	v := newVerifier(t, &fakeResolver{
		ips: map[string][]net.IPAddr{
			"example.com":       {shared, {IP: net.ParseIP("203.0.113.11")}},
			"edge.hiredeck.com": {shared},
		},
	})

	res := v.Verify(context.Background(), "example.com", "GITHUB")
	assert.True(t, res.Verified)
	assert.True(t, res.AddressMatch)
}

func TestVerifyIPTargetMatch(t *testing.T) {
	v, err := dnsverify.New("203.0.113.10", dnsverify.WithResolver(&fakeResolver{
		ips: map[string][]net.IPAddr{
			"foo.example.com": {{IP: net.ParseIP("203.0.113.10")}},
		},
	}))
	require.NoError(t, err)

	res := v.Verify(context.Background(), "foo.example.com", "GITHUB")
	assert.True(t, res.Verified)
	assert.True(t, res.AddressMatch)
}

func TestVerifyWrongAddressOnly(t *testing.T) {
	v := newVerifier(t, &fakeResolver{
		cnames: map[string]string{"foo.example.com": "elsewhere.example.net."},
		ips: map[string][]net.IPAddr{
			"foo.example.com":   {{IP: net.ParseIP("198.51.100.1")}},
			"edge.hiredeck.com": {{IP: net.ParseIP("203.0.113.10")}},
		},
	})

	res := v.Verify(context.Background(), "foo.example.com", "GITHUB")
	assert.False(t, res.Verified)
	assert.False(t, res.Unresolved)
}
