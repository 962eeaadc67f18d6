// Package dnsverify checks that a tenant has published the DNS records
// required to bind a custom domain.
//
// Verification passes when either proof is present: the address proof (a
// CNAME to the platform host, or A records overlapping the platform host's
// current address set, for registrars that cannot publish CNAME at the apex)
// or the TXT ownership proof (the challenge value re-derived from
// core/dnsrecord appearing verbatim among the domain's TXT records).
//
// Resolver failures of any kind are reported as "not yet verified", never as
// hard errors: NXDOMAIN, timeouts and SERVFAIL are all expected while the
// tenant's records propagate. The package performs no retries; callers decide
// the polling cadence.
package dnsverify
