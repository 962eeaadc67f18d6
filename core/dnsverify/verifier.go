package dnsverify

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/hiredeck/domainkit/core/dnsrecord"
	"github.com/hiredeck/domainkit/core/logger"
)

// Resolver is the subset of net.Resolver the verifier depends on. Tests
// substitute a fake; production uses net.DefaultResolver.
type Resolver interface {
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Result describes the outcome of a single verification pass.
type Result struct {
	// Verified is true when at least one of the two proofs passed.
	Verified bool

	// AddressMatch reports whether the CNAME/A proof passed.
	AddressMatch bool

	// TXTMatch reports whether the TXT ownership proof passed.
	TXTMatch bool

	// Unresolved is true when no relevant records could be resolved at all,
	// which usually means the tenant's records have not propagated yet.
	Unresolved bool

	// Reason is a human-readable explanation for a failed pass.
	Reason string
}

// Verifier resolves a domain's DNS records and compares them against the
// expected platform target and TXT challenge. Read-only; no side effects
// beyond DNS queries.
type Verifier struct {
	resolver Resolver
	target   string
	targetIP net.IP
	timeout  time.Duration
	log      *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithResolver replaces the DNS resolver. Intended for tests.
func WithResolver(r Resolver) Option {
	return func(v *Verifier) {
		if r != nil {
			v.resolver = r
		}
	}
}

// WithTimeout sets the per-lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(v *Verifier) {
		if log != nil {
			v.log = log
		}
	}
}

// New creates a Verifier expecting domains to point at target, the platform's
// canonical host (or IP literal).
func New(target string, opts ...Option) (*Verifier, error) {
	target = dnsrecord.Normalize(target)
	if target == "" {
		return nil, dnsrecord.ErrEmptyDomain
	}

	v := &Verifier{
		resolver: net.DefaultResolver,
		target:   target,
		targetIP: net.ParseIP(target),
		timeout:  10 * time.Second,
		log:      logger.NewDiscard(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify runs one verification pass for domain with the given SSO provider.
// It never returns an error for expected DNS states; the Result carries the
// outcome and reason.
func (v *Verifier) Verify(ctx context.Context, domain, provider string) Result {
	domain = dnsrecord.Normalize(domain)
	if domain == "" {
		return Result{Reason: "domain is empty"}
	}

	addressOK, addressResolved := v.checkAddress(ctx, domain)
	txtOK, txtResolved := v.checkTXT(ctx, domain, provider)

	res := Result{
		Verified:     addressOK || txtOK,
		AddressMatch: addressOK,
		TXTMatch:     txtOK,
		Unresolved:   !addressResolved && !txtResolved,
	}

	switch {
	case res.Verified:
	case res.Unresolved:
		res.Reason = "no DNS records found; records may still be propagating"
	default:
		res.Reason = "published DNS records do not match the expected values"
	}

	v.log.DebugContext(ctx, "domain verification pass",
		logger.Domain(domain),
		slog.Bool("address_match", res.AddressMatch),
		slog.Bool("txt_match", res.TXTMatch),
		slog.Bool("verified", res.Verified))

	return res
}

// checkAddress verifies the CNAME/A proof. The second return value reports
// whether any address records resolved at all.
func (v *Verifier) checkAddress(ctx context.Context, domain string) (ok, resolved bool) {
	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	cname, err := v.resolver.LookupCNAME(lookupCtx, domain)
	if err == nil && cname != "" {
		resolved = true
		if dnsrecord.Normalize(cname) == v.target {
			return true, true
		}
	}

	// Apex domains cannot carry a CNAME; fall back to comparing the domain's
	// A records with the platform host's current address set.
	addrs, err := v.lookupIPs(ctx, domain)
	if err != nil || len(addrs) == 0 {
		return false, resolved
	}
	resolved = true

	if v.targetIP != nil {
		for _, ip := range addrs {
			if ip.Equal(v.targetIP) {
				return true, true
			}
		}
		return false, true
	}

	targetAddrs, err := v.lookupIPs(ctx, v.target)
	if err != nil {
		return false, true
	}
	for _, ip := range addrs {
		for _, tip := range targetAddrs {
			if ip.Equal(tip) {
				return true, true
			}
		}
	}
	return false, true
}

// checkTXT verifies the TXT ownership proof.
func (v *Verifier) checkTXT(ctx context.Context, domain, provider string) (ok, resolved bool) {
	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	records, err := v.resolver.LookupTXT(lookupCtx, domain)
	if err != nil || len(records) == 0 {
		return false, false
	}

	expected := dnsrecord.ChallengeValue(domain, provider)
	for _, record := range records {
		if record == expected {
			return true, true
		}
	}
	return false, true
}

func (v *Verifier) lookupIPs(ctx context.Context, host string) ([]net.IP, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	addrs, err := v.resolver.LookupIPAddr(lookupCtx, host)
	if err != nil {
		return nil, err
	}

	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}
