// Package tenant owns the per-tenant custom-domain state machine and exposes
// the operations the admin layer consumes: bind a domain, verify it, request
// a certificate, activate SSO and read back status.
//
// The Service enforces the cross-component invariants at this boundary:
// a domain is globally unique across tenants, certificates are only issued
// for verified domains, rebinding a domain clears verification and SSL state
// as a unit, and every state transition is applied as a single atomic store
// update.
package tenant
