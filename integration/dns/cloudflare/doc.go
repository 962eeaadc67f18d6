// Package cloudflare publishes ACME DNS-01 challenge records through the
// Cloudflare API.
//
// The publisher implements lego's challenge.Provider: Present creates the
// _acme-challenge TXT record in the zone that owns the domain, CleanUp
// removes it once validation completes. Authentication uses the operator's
// bearer token, read from the temporary credential file the certificate
// manager writes for each issuance run.
package cloudflare
