package dnsrecord

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
)

// Type identifies the kind of DNS record a tenant must publish.
type Type string

const (
	TypeCNAME Type = "CNAME"
	TypeA     Type = "A"
	TypeTXT   Type = "TXT"
)

// Record describes a single DNS record the tenant has to create at their
// registrar.
type Record struct {
	Type  Type   `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// challengeHashLen is the number of hex characters kept from the SHA-256
// fingerprint embedded in the TXT ownership record.
const challengeHashLen = 16

// Generator derives the record set for binding a domain to the platform.
type Generator struct {
	target   string
	targetIP bool
}

// NewGenerator creates a generator pointing tenants at the platform's
// canonical host. If target is an IP literal the address record becomes an A
// record instead of a CNAME.
func NewGenerator(target string) (*Generator, error) {
	target = Normalize(target)
	if target == "" {
		return nil, fmt.Errorf("platform target host: %w", ErrEmptyDomain)
	}

	return &Generator{
		target:   target,
		targetIP: net.ParseIP(target) != nil,
	}, nil
}

// Generate returns the records a tenant must publish for domain with the
// given SSO provider. The output is deterministic: the same input always
// yields byte-identical records.
func (g *Generator) Generate(domain, provider string) ([]Record, error) {
	domain = Normalize(domain)
	if domain == "" {
		return nil, ErrEmptyDomain
	}
	if strings.TrimSpace(provider) == "" {
		return nil, ErrEmptyProvider
	}

	addrType := TypeCNAME
	if g.targetIP {
		addrType = TypeA
	}

	return []Record{
		{Type: addrType, Name: domain, Value: g.target},
		{Type: TypeTXT, Name: domain, Value: ChallengeValue(domain, provider)},
	}, nil
}

// Target returns the canonical platform host tenants point their records at.
func (g *Generator) Target() string {
	return g.target
}

// ChallengeValue derives the TXT ownership payload for (domain, provider).
// The value is re-derived at verification time so it never needs to be
// stored. Format: v=sso provider=<PROVIDER> verify=<16 hex chars>.
func ChallengeValue(domain, provider string) string {
	domain = Normalize(domain)
	provider = strings.ToUpper(strings.TrimSpace(provider))

	sum := sha256.Sum256([]byte(domain + "|" + provider))
	return fmt.Sprintf("v=sso provider=%s verify=%s", provider, hex.EncodeToString(sum[:])[:challengeHashLen])
}

// Normalize lower-cases a hostname and strips whitespace and the trailing dot.
func Normalize(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimSuffix(domain, ".")
}

// ValidateCandidate checks that domain is usable as a custom domain for a
// platform reachable at platformHost. Wildcards, bare labels and the
// platform's own domain (or its subdomains) are rejected.
func ValidateCandidate(domain, platformHost string) error {
	domain = Normalize(domain)
	platformHost = Normalize(platformHost)

	if domain == "" {
		return ErrEmptyDomain
	}
	if strings.Contains(domain, "*") {
		return fmt.Errorf("%w: wildcard domains are not supported", ErrInvalidDomain)
	}
	if !strings.Contains(domain, ".") {
		return fmt.Errorf("%w: bare labels are not routable", ErrInvalidDomain)
	}
	if net.ParseIP(domain) != nil {
		return fmt.Errorf("%w: IP addresses cannot be bound", ErrInvalidDomain)
	}
	for _, label := range strings.Split(domain, ".") {
		if label == "" {
			return fmt.Errorf("%w: empty label", ErrInvalidDomain)
		}
	}
	if platformHost != "" && (domain == platformHost || strings.HasSuffix(domain, "."+platformHost)) {
		return ErrPlatformDomain
	}

	return nil
}
