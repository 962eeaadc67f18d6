package certificate

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
	legocert "github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"

	"github.com/hiredeck/domainkit/core/dnsrecord"
	"github.com/hiredeck/domainkit/core/logger"
)

// Config holds certificate manager settings.
type Config struct {
	// CertDir is the root directory for per-domain certificate bundles.
	CertDir string `env:"CERT_DIR" envDefault:"./certs"`

	// CADirectoryURL is the ACME directory endpoint.
	CADirectoryURL string `env:"ACME_DIRECTORY_URL" envDefault:"https://acme-v02.api.letsencrypt.org/directory"`

	// DNSAPIToken authenticates against the DNS provider API used to publish
	// DNS-01 challenges. Operator-supplied, never tenant-visible.
	DNSAPIToken string `env:"DNS_API_TOKEN"`

	// MinRemainingDays is the minimum validity left for an existing
	// certificate to be considered safe to serve.
	MinRemainingDays int `env:"CERT_MIN_REMAINING_DAYS" envDefault:"14"`

	// IssueTimeout bounds one external issuance call.
	IssueTimeout time.Duration `env:"CERT_ISSUE_TIMEOUT" envDefault:"5m"`
}

// PublisherFactory builds the DNS-01 challenge publisher from the temporary
// credential file written for one issuance run.
type PublisherFactory func(credentialsPath string) (challenge.Provider, error)

// Result reports a completed issuance.
type Result struct {
	// CertPath points at fullchain.pem, KeyPath at privkey.pem.
	CertPath string
	KeyPath  string

	// Expiry is read back from the certificate file after it is written;
	// the file is the source of truth.
	Expiry time.Time

	// Issued is false when a valid existing certificate was reused.
	Issued bool
}

// Manager turns a verified domain into an installed certificate bundle via
// an ACME DNS-01 flow. Issuance for a given domain is mutually exclusive;
// concurrent calls for the same domain fail fast with ErrOperationInProgress.
type Manager struct {
	cfg     Config
	storage *Storage
	log     *slog.Logger

	newPublisher    PublisherFactory
	clientFactory   clientFactory
	accountKeyMaker func() (crypto.PrivateKey, error)
	now             func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithPublisherFactory replaces the DNS-01 challenge publisher factory.
func WithPublisherFactory(f PublisherFactory) Option {
	return func(m *Manager) {
		if f != nil {
			m.newPublisher = f
		}
	}
}

// NewManager creates a certificate manager backed by the given storage root.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	storage, err := NewStorage(cfg.CertDir)
	if err != nil {
		return nil, err
	}
	if cfg.MinRemainingDays <= 0 {
		cfg.MinRemainingDays = 14
	}
	if cfg.IssueTimeout <= 0 {
		cfg.IssueTimeout = 5 * time.Minute
	}
	if cfg.CADirectoryURL == "" {
		cfg.CADirectoryURL = lego.LEDirectoryProduction
	}

	m := &Manager{
		cfg:           cfg,
		storage:       storage,
		log:           logger.NewDiscard(),
		clientFactory: defaultClientFactory,
		accountKeyMaker: func() (crypto.PrivateKey, error) {
			return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		},
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.newPublisher == nil {
		return nil, fmt.Errorf("challenge publisher factory is required")
	}
	return m, nil
}

// Storage exposes the underlying bundle storage.
func (m *Manager) Storage() *Storage {
	return m.storage
}

// CheckExisting reports whether a currently valid certificate with at least
// the configured minimum validity remaining exists on disk for domain.
func (m *Manager) CheckExisting(domain string) bool {
	domain = dnsrecord.Normalize(domain)
	if domain == "" || !m.storage.Exists(domain) {
		return false
	}
	err := m.storage.Validate(domain, m.now(), time.Duration(m.cfg.MinRemainingDays)*24*time.Hour)
	return err == nil
}

// IssueOrRenew obtains a certificate for exactly domain, or reuses a valid
// existing bundle. On failure nothing is partially applied: the previous
// bundle stays untouched and the returned error classifies the failure
// (ErrCredentialMissing, ErrChallengePublishFailed, ErrIssuanceFailed,
// ErrCertificateInvalid, ErrOperationInProgress).
func (m *Manager) IssueOrRenew(ctx context.Context, domain, contactEmail string) (*Result, error) {
	domain = dnsrecord.Normalize(domain)
	if domain == "" {
		return nil, ErrEmptyDomain
	}
	if contactEmail == "" {
		return nil, ErrEmailRequired
	}

	if !m.tryLock(domain) {
		return nil, fmt.Errorf("%w: %s", ErrOperationInProgress, domain)
	}
	defer m.unlock(domain)

	// Idempotent short-circuit: a valid bundle with enough runway means no
	// external call at all.
	if m.CheckExisting(domain) {
		expiry, err := m.storage.Expiry(domain)
		if err != nil {
			return nil, err
		}
		m.log.InfoContext(ctx, "existing certificate still valid, skipping issuance",
			logger.Domain(domain), slog.Time("expiry", expiry))
		return m.result(domain, expiry, false), nil
	}

	if m.cfg.DNSAPIToken == "" {
		return nil, ErrCredentialMissing
	}

	credPath, cleanup, err := m.writeCredentialFile()
	if err != nil {
		return nil, err
	}
	// The credential file must disappear on every exit path, panics included.
	defer cleanup()

	publisher, err := m.newPublisher(credPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrChallengePublishFailed, err)
	}

	certRes, err := m.obtain(ctx, domain, contactEmail, publisher)
	if err != nil {
		return nil, err
	}

	// Validate the issued material before anything touches disk.
	if err := m.validateIssued(certRes); err != nil {
		return nil, err
	}

	if err := m.storage.WriteBundle(domain, certRes.Certificate, certRes.PrivateKey); err != nil {
		return nil, err
	}

	expiry, err := m.storage.Expiry(domain)
	if err != nil {
		return nil, err
	}

	m.log.InfoContext(ctx, "certificate issued",
		logger.Domain(domain), slog.Time("expiry", expiry))

	return m.result(domain, expiry, true), nil
}

func (m *Manager) result(domain string, expiry time.Time, issued bool) *Result {
	return &Result{
		CertPath: m.storage.FullchainPath(domain),
		KeyPath:  m.storage.KeyPath(domain),
		Expiry:   expiry,
		Issued:   issued,
	}
}

// obtain runs the external ACME flow with a bounded timeout so a stuck call
// never blocks a scheduler sweep indefinitely.
func (m *Manager) obtain(ctx context.Context, domain, contactEmail string, publisher challenge.Provider) (*legocert.Resource, error) {
	accountKey, err := m.accountKeyMaker()
	if err != nil {
		return nil, fmt.Errorf("%w: generate account key: %s", ErrIssuanceFailed, err)
	}

	user := &accountUser{email: contactEmail, key: accountKey}

	legoCfg := lego.NewConfig(user)
	legoCfg.CADirURL = m.cfg.CADirectoryURL
	legoCfg.Certificate.KeyType = certcrypto.RSA2048

	client, err := m.clientFactory(legoCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create acme client: %s", ErrIssuanceFailed, err)
	}

	if err := client.SetDNS01Provider(publisher); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrChallengePublishFailed, err)
	}

	type obtainResult struct {
		res *legocert.Resource
		err error
	}

	obtainCtx, cancel := context.WithTimeout(ctx, m.cfg.IssueTimeout)
	defer cancel()

	resCh := make(chan obtainResult, 1)
	go func() {
		reg, err := client.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
		if err != nil {
			resCh <- obtainResult{err: fmt.Errorf("register account: %w", err)}
			return
		}
		user.registration = reg

		res, err := client.Obtain(legocert.ObtainRequest{
			Domains: []string{domain},
			Bundle:  true,
		})
		resCh <- obtainResult{res: res, err: err}
	}()

	select {
	case <-obtainCtx.Done():
		return nil, fmt.Errorf("%w: %s", ErrIssuanceFailed, obtainCtx.Err())
	case r := <-resCh:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %s", ErrIssuanceFailed, r.err)
		}
		if r.res == nil {
			return nil, fmt.Errorf("%w: empty response from acme server", ErrIssuanceFailed)
		}
		return r.res, nil
	}
}

// validateIssued parses the freshly issued material in memory and checks the
// validity window contains now with margin.
func (m *Manager) validateIssued(res *legocert.Resource) error {
	if len(res.Certificate) == 0 {
		return fmt.Errorf("%w: empty certificate payload from acme server", ErrCertificateInvalid)
	}
	if len(res.PrivateKey) == 0 {
		return fmt.Errorf("%w: empty private key from acme server", ErrCertificateInvalid)
	}

	if _, err := tls.X509KeyPair(res.Certificate, res.PrivateKey); err != nil {
		return fmt.Errorf("%w: issued cert/key pair does not match: %s", ErrCertificateInvalid, err)
	}

	leaf := firstPEMBlock(res.Certificate)
	if leaf == nil {
		return fmt.Errorf("%w: no PEM certificate in acme response", ErrCertificateInvalid)
	}

	cert, err := parsePEMCertificate(leaf)
	if err != nil {
		return err
	}

	now := m.now()
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("%w: issued certificate not valid before %s", ErrCertificateInvalid, cert.NotBefore)
	}
	if now.Add(24 * time.Hour).After(cert.NotAfter) {
		return fmt.Errorf("%w: issued certificate expires %s", ErrCertificateInvalid, cert.NotAfter)
	}
	return nil
}

// writeCredentialFile persists the DNS API token to a restrictive-permission
// temporary file consumed by the challenge publisher for one issuance run.
// Each run gets its own file, so concurrent issuance for different domains
// never shares credential state. The returned cleanup removes it.
func (m *Manager) writeCredentialFile() (string, func(), error) {
	f, err := os.CreateTemp(m.storage.Dir(), "dns-credentials-*.ini")
	if err != nil {
		return "", nil, fmt.Errorf("%w: create credential file: %s", ErrChallengePublishFailed, err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("%w: restrict credential file: %s", ErrChallengePublishFailed, err)
	}

	content := fmt.Sprintf("dns_api_token = %s\n", m.cfg.DNSAPIToken)
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("%w: write credential file: %s", ErrChallengePublishFailed, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%w: close credential file: %s", ErrChallengePublishFailed, err)
	}

	return path, cleanup, nil
}

func (m *Manager) tryLock(domain string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.inFlight[domain]; busy {
		return false
	}
	m.inFlight[domain] = struct{}{}
	return true
}

func (m *Manager) unlock(domain string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, domain)
}
