// Package postmark delivers certificate expiry alerts by email through the
// Postmark transactional API.
//
// Alerts are sent to the tenant's contact address when one is on file, with
// the operations address as fallback and Reply-To, so responses always reach
// a human. Severity selects the message tag for Postmark-side analytics.
package postmark
