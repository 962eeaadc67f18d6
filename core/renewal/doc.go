// Package renewal keeps issued certificates fresh. A Scheduler runs the sweep
// on a fixed interval; each sweep walks every tenant with an installed
// certificate, re-reads the real expiry from the certificate file, sends
// tiered expiry alerts and renews certificates that are inside the renewal
// window.
//
// Failures are isolated per tenant: one tenant's broken DNS credentials or a
// panicking provider never stops the sweep for the rest. Renewal attempts are
// retried with a fixed delay, except for missing DNS credentials, which no
// retry can fix.
package renewal
