// Package sso derives the provider-facing URLs for a tenant's verified
// custom domain and validates provider credentials before single sign-on can
// be activated.
//
// The package is pure templating plus validation: it performs no network
// calls. It is the consumer that makes the verified-domain state meaningful
// to the rest of the platform, which is why activation refuses domains that
// have not passed DNS verification.
package sso
