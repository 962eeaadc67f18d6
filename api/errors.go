package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hiredeck/domainkit/core/certificate"
	"github.com/hiredeck/domainkit/core/dnsrecord"
	"github.com/hiredeck/domainkit/core/sso"
	"github.com/hiredeck/domainkit/core/tenant"
)

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Error: message})
}

// classify maps domain errors onto HTTP status and a stable machine-readable
// code. User-actionable problems get 4xx, upstream failures 5xx.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, tenant.ErrNotFound):
		return http.StatusNotFound, "tenant_not_found"

	case errors.Is(err, tenant.ErrDomainTaken):
		return http.StatusConflict, "domain_taken"
	case errors.Is(err, certificate.ErrOperationInProgress):
		return http.StatusConflict, "operation_in_progress"

	case errors.Is(err, dnsrecord.ErrEmptyDomain),
		errors.Is(err, dnsrecord.ErrInvalidDomain),
		errors.Is(err, dnsrecord.ErrPlatformDomain):
		return http.StatusUnprocessableEntity, "invalid_domain"
	case errors.Is(err, dnsrecord.ErrEmptyProvider):
		return http.StatusUnprocessableEntity, "provider_required"

	case errors.Is(err, tenant.ErrDomainNotSet):
		return http.StatusUnprocessableEntity, "domain_not_set"
	case errors.Is(err, tenant.ErrDomainNotVerified),
		errors.Is(err, sso.ErrDomainNotVerified):
		return http.StatusUnprocessableEntity, "domain_not_verified"
	case errors.Is(err, tenant.ErrContactEmailMissing):
		return http.StatusUnprocessableEntity, "contact_email_missing"

	case errors.Is(err, sso.ErrUnsupportedProvider):
		return http.StatusUnprocessableEntity, "unsupported_provider"
	case errors.Is(err, sso.ErrMissingCredential):
		return http.StatusUnprocessableEntity, "missing_credential"

	case errors.Is(err, certificate.ErrCredentialMissing):
		return http.StatusServiceUnavailable, "dns_credentials_missing"
	case errors.Is(err, certificate.ErrChallengePublishFailed),
		errors.Is(err, certificate.ErrIssuanceFailed),
		errors.Is(err, certificate.ErrCertificateInvalid):
		return http.StatusBadGateway, "issuance_failed"

	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
