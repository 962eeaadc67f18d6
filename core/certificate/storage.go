package certificate

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	certFile      = "cert.pem"
	keyFile       = "privkey.pem"
	fullchainFile = "fullchain.pem"
)

// Storage keeps one directory per domain containing cert.pem (leaf),
// privkey.pem and fullchain.pem. Writes are atomic (temp file + rename) and
// private keys are stored with 0600 permissions.
type Storage struct {
	dir string
}

// NewStorage creates the certificate root directory if needed.
func NewStorage(dir string) (*Storage, error) {
	if dir == "" {
		return nil, fmt.Errorf("certificate directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create certificate directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the storage root directory.
func (s *Storage) Dir() string {
	return s.dir
}

// DomainDir returns the directory holding a domain's certificate bundle.
func (s *Storage) DomainDir(domain string) string {
	return filepath.Join(s.dir, safeFileSegment(domain))
}

// CertPath returns the path of the leaf certificate for domain.
func (s *Storage) CertPath(domain string) string {
	return filepath.Join(s.DomainDir(domain), certFile)
}

// KeyPath returns the path of the private key for domain.
func (s *Storage) KeyPath(domain string) string {
	return filepath.Join(s.DomainDir(domain), keyFile)
}

// FullchainPath returns the path of the certificate chain for domain.
func (s *Storage) FullchainPath(domain string) string {
	return filepath.Join(s.DomainDir(domain), fullchainFile)
}

// Exists reports whether both the chain and the key are present on disk.
func (s *Storage) Exists(domain string) bool {
	if _, err := os.Stat(s.FullchainPath(domain)); err != nil {
		return false
	}
	_, err := os.Stat(s.KeyPath(domain))
	return err == nil
}

// WriteBundle persists the issued chain and private key for domain. The leaf
// certificate is extracted from the first PEM block of the chain. Each file
// is written atomically so a crash never leaves a half-written bundle.
func (s *Storage) WriteBundle(domain string, fullchain, key []byte) error {
	if len(fullchain) == 0 {
		return fmt.Errorf("%w: empty certificate chain", ErrCertificateInvalid)
	}
	if len(key) == 0 {
		return fmt.Errorf("%w: empty private key", ErrCertificateInvalid)
	}

	leaf := firstPEMBlock(fullchain)
	if leaf == nil {
		return fmt.Errorf("%w: chain contains no PEM certificate", ErrCertificateInvalid)
	}

	dir := s.DomainDir(domain)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create bundle directory for %s: %w", domain, err)
	}

	if err := atomicWrite(filepath.Join(dir, keyFile), key, 0o600); err != nil {
		return err
	}
	if err := atomicWrite(filepath.Join(dir, certFile), leaf, 0o644); err != nil {
		return err
	}
	return atomicWrite(filepath.Join(dir, fullchainFile), fullchain, 0o644)
}

// ReadBundle loads the chain and key for domain from disk.
func (s *Storage) ReadBundle(domain string) (fullchain, key []byte, err error) {
	fullchain, err = os.ReadFile(s.FullchainPath(domain))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read certificate chain for %s: %w", domain, err)
	}
	key, err = os.ReadFile(s.KeyPath(domain))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read private key for %s: %w", domain, err)
	}
	return fullchain, key, nil
}

// Expiry parses the on-disk leaf certificate and returns its NotAfter time.
// The file, not the database, is the source of truth for expiry.
func (s *Storage) Expiry(domain string) (time.Time, error) {
	cert, err := s.parseLeaf(domain)
	if err != nil {
		return time.Time{}, err
	}
	return cert.NotAfter, nil
}

// Validate checks that the stored bundle parses as a matching cert/key pair
// and that now falls inside the certificate's validity window with at least
// minRemaining left before expiry.
func (s *Storage) Validate(domain string, now time.Time, minRemaining time.Duration) error {
	fullchain, key, err := s.ReadBundle(domain)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrCertificateInvalid, err)
	}

	if _, err := tls.X509KeyPair(fullchain, key); err != nil {
		return fmt.Errorf("%w: cert/key pair does not match: %s", ErrCertificateInvalid, err)
	}

	cert, err := s.parseLeaf(domain)
	if err != nil {
		return err
	}

	if now.Before(cert.NotBefore) {
		return fmt.Errorf("%w: certificate not valid before %s", ErrCertificateInvalid, cert.NotBefore)
	}
	if now.Add(minRemaining).After(cert.NotAfter) {
		return fmt.Errorf("%w: certificate expires %s", ErrCertificateInvalid, cert.NotAfter)
	}
	return nil
}

// Delete removes the whole bundle directory for domain.
func (s *Storage) Delete(domain string) error {
	if err := os.RemoveAll(s.DomainDir(domain)); err != nil {
		return fmt.Errorf("failed to delete certificate bundle for %s: %w", domain, err)
	}
	return nil
}

func (s *Storage) parseLeaf(domain string) (*x509.Certificate, error) {
	data, err := os.ReadFile(s.CertPath(domain))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read certificate for %s: %s", ErrCertificateInvalid, domain, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: failed to decode PEM block for %s", ErrCertificateInvalid, domain)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse certificate for %s: %s", ErrCertificateInvalid, domain, err)
	}
	return cert, nil
}

func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best effort cleanup
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// parsePEMCertificate parses a single PEM-encoded certificate.
func parsePEMCertificate(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: failed to decode PEM block", ErrCertificateInvalid)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCertificateInvalid, err)
	}
	return cert, nil
}

// firstPEMBlock re-encodes the first PEM block found in data, or nil.
func firstPEMBlock(data []byte) []byte {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil
	}
	return pem.EncodeToMemory(block)
}

func safeFileSegment(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "certificate"
	}

	var b strings.Builder
	b.Grow(len(value))

	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	sanitized := strings.Trim(b.String(), "._-")
	if sanitized == "" {
		return "certificate"
	}
	return sanitized
}
