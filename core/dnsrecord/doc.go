// Package dnsrecord derives the DNS records a tenant must publish to bind a
// custom domain to the platform.
//
// The generator is a pure function of (domain, provider): it produces one
// address record (CNAME, or A when the platform edge is addressed by IP)
// pointing at the platform host, and one TXT ownership record whose value is
// re-derivable at verification time. Nothing is persisted; the TXT challenge
// is a deterministic, non-secret fingerprint of the domain and the SSO
// provider.
package dnsrecord
