// Package api exposes the domain lifecycle operations over HTTP for the
// admin panel: bind a domain, trigger verification, request a certificate,
// read status, detach and activate SSO.
//
// The router expects an authenticating proxy in front of it and reads the
// acting tenant from the X-Tenant-ID header. All request and response bodies
// are JSON; domain errors map onto stable codes so the panel can branch on
// them without string matching.
package api
