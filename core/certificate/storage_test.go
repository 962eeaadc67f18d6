package certificate_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiredeck/domainkit/core/certificate"
)

func newBundle(t *testing.T, domain string, notAfter time.Time) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: domain},
		DNSNames:     []string{domain},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
}

func TestStorageBundleRoundTrip(t *testing.T) {
	s, err := certificate.NewStorage(t.TempDir())
	require.NoError(t, err)

	notAfter := time.Now().Add(90 * 24 * time.Hour)
	certPEM, keyPEM := newBundle(t, "jobs.acme.com", notAfter)

	require.NoError(t, s.WriteBundle("jobs.acme.com", certPEM, keyPEM))
	require.True(t, s.Exists("jobs.acme.com"))

	expiry, err := s.Expiry("jobs.acme.com")
	require.NoError(t, err)
	assert.WithinDuration(t, notAfter, expiry, 2*time.Second)

	gotChain, gotKey, err := s.ReadBundle("jobs.acme.com")
	require.NoError(t, err)
	assert.Equal(t, certPEM, gotChain)
	assert.Equal(t, keyPEM, gotKey)

	// Private keys must never be world readable.
	info, err := os.Stat(s.KeyPath("jobs.acme.com"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStorageValidateWindow(t *testing.T) {
	s, err := certificate.NewStorage(t.TempDir())
	require.NoError(t, err)

	certPEM, keyPEM := newBundle(t, "jobs.acme.com", time.Now().Add(20*24*time.Hour))
	require.NoError(t, s.WriteBundle("jobs.acme.com", certPEM, keyPEM))

	assert.NoError(t, s.Validate("jobs.acme.com", time.Now(), 14*24*time.Hour))
	assert.ErrorIs(t, s.Validate("jobs.acme.com", time.Now(), 30*24*time.Hour), certificate.ErrCertificateInvalid)
}

func TestStorageRejectsEmptyPayloads(t *testing.T) {
	s, err := certificate.NewStorage(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, s.WriteBundle("jobs.acme.com", nil, []byte("key")), certificate.ErrCertificateInvalid)
	assert.ErrorIs(t, s.WriteBundle("jobs.acme.com", []byte("cert"), nil), certificate.ErrCertificateInvalid)
}

func TestStorageDelete(t *testing.T) {
	s, err := certificate.NewStorage(t.TempDir())
	require.NoError(t, err)

	certPEM, keyPEM := newBundle(t, "jobs.acme.com", time.Now().Add(30*24*time.Hour))
	require.NoError(t, s.WriteBundle("jobs.acme.com", certPEM, keyPEM))
	require.NoError(t, s.Delete("jobs.acme.com"))

	assert.False(t, s.Exists("jobs.acme.com"))
}
