package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hiredeck/domainkit/api"
	"github.com/hiredeck/domainkit/core/certificate"
	"github.com/hiredeck/domainkit/core/dnsrecord"
	"github.com/hiredeck/domainkit/core/sso"
	"github.com/hiredeck/domainkit/core/tenant"
)

type stubService struct {
	bindRecords []dnsrecord.Record
	bindErr     error
	verified    bool
	verifyErr   error
	certMessage string
	certErr     error
	status      *tenant.Status
	statusErr   error
	detachErr   error
	endpoints   sso.Endpoints
	ssoErr      error

	lastTenant uuid.UUID
}

func (s *stubService) BindDomain(_ context.Context, id uuid.UUID, _, _ string) ([]dnsrecord.Record, error) {
	s.lastTenant = id
	return s.bindRecords, s.bindErr
}

func (s *stubService) VerifyDomain(_ context.Context, id uuid.UUID) (bool, error) {
	s.lastTenant = id
	return s.verified, s.verifyErr
}

func (s *stubService) RequestCertificate(_ context.Context, id uuid.UUID) (string, error) {
	s.lastTenant = id
	return s.certMessage, s.certErr
}

func (s *stubService) DomainStatus(_ context.Context, id uuid.UUID) (*tenant.Status, error) {
	s.lastTenant = id
	return s.status, s.statusErr
}

func (s *stubService) DetachDomain(_ context.Context, id uuid.UUID) error {
	s.lastTenant = id
	return s.detachErr
}

func (s *stubService) ActivateSSO(_ context.Context, id uuid.UUID, _ string, _ sso.Settings) (sso.Endpoints, error) {
	s.lastTenant = id
	return s.endpoints, s.ssoErr
}

func doRequest(t *testing.T, handler http.Handler, method, path string, tenantID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterTenantHeader(t *testing.T) {
	t.Parallel()

	handler := api.NewRouter(&stubService{})

	rec := doRequest(t, handler, http.MethodGet, "/domains/status", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/domains/status", "not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterBindDomain(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("success returns records", func(t *testing.T) {
		t.Parallel()

		svc := &stubService{bindRecords: []dnsrecord.Record{
			{Type: dnsrecord.TypeCNAME, Name: "sso.tenant.com", Value: "app.example.com"},
			{Type: dnsrecord.TypeTXT, Name: "sso.tenant.com", Value: "v=sso provider=GITHUB verify=abcd"},
		}}
		handler := api.NewRouter(svc)

		rec := doRequest(t, handler, http.MethodPost, "/domains", id.String(),
			map[string]string{"domain": "sso.tenant.com", "provider": "GITHUB"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, id, svc.lastTenant)

		var resp struct {
			Domain  string             `json:"domain"`
			Records []dnsrecord.Record `json:"records"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "sso.tenant.com", resp.Domain)
		require.Len(t, resp.Records, 2)
	})

	t.Run("taken domain maps to 409", func(t *testing.T) {
		t.Parallel()

		handler := api.NewRouter(&stubService{bindErr: tenant.ErrDomainTaken})
		rec := doRequest(t, handler, http.MethodPost, "/domains", id.String(),
			map[string]string{"domain": "sso.tenant.com"})
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Contains(t, rec.Body.String(), "domain_taken")
	})

	t.Run("invalid domain maps to 422", func(t *testing.T) {
		t.Parallel()

		handler := api.NewRouter(&stubService{bindErr: dnsrecord.ErrInvalidDomain})
		rec := doRequest(t, handler, http.MethodPost, "/domains", id.String(),
			map[string]string{"domain": "*.tenant.com"})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestRouterVerifyDomain(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	handler := api.NewRouter(&stubService{verified: false})
	rec := doRequest(t, handler, http.MethodPost, "/domains/verify", id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, "unpropagated DNS is not an HTTP error")
	require.JSONEq(t, `{"verified": false}`, rec.Body.String())

	handler = api.NewRouter(&stubService{verifyErr: tenant.ErrDomainNotSet})
	rec = doRequest(t, handler, http.MethodPost, "/domains/verify", id.String(), nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRouterRequestCertificate(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		handler := api.NewRouter(&stubService{certMessage: "certificate installed"})
		rec := doRequest(t, handler, http.MethodPost, "/domains/certificate", id.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "certificate installed")
	})

	t.Run("concurrent issuance maps to 409", func(t *testing.T) {
		t.Parallel()

		handler := api.NewRouter(&stubService{certErr: certificate.ErrOperationInProgress})
		rec := doRequest(t, handler, http.MethodPost, "/domains/certificate", id.String(), nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Contains(t, rec.Body.String(), "operation_in_progress")
	})

	t.Run("acme failure maps to 502", func(t *testing.T) {
		t.Parallel()

		handler := api.NewRouter(&stubService{certErr: certificate.ErrIssuanceFailed})
		rec := doRequest(t, handler, http.MethodPost, "/domains/certificate", id.String(), nil)
		require.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("unverified domain maps to 422", func(t *testing.T) {
		t.Parallel()

		handler := api.NewRouter(&stubService{certErr: tenant.ErrDomainNotVerified})
		rec := doRequest(t, handler, http.MethodPost, "/domains/certificate", id.String(), nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestRouterDomainStatus(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	handler := api.NewRouter(&stubService{status: &tenant.Status{
		Domain:         "sso.tenant.com",
		DomainVerified: true,
		SSLEnabled:     true,
		LastFailure:    "renewal failed: acme order error",
	}})

	rec := doRequest(t, handler, http.MethodGet, "/domains/status", id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status tenant.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.True(t, status.SSLEnabled)
	require.Equal(t, "renewal failed: acme order error", status.LastFailure)
}

func TestRouterDetachDomain(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	handler := api.NewRouter(&stubService{})

	rec := doRequest(t, handler, http.MethodDelete, "/domains", id.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouterActivateSSO(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("success returns endpoints", func(t *testing.T) {
		t.Parallel()

		handler := api.NewRouter(&stubService{endpoints: sso.Endpoints{
			CallbackURL: "https://sso.tenant.com/auth/github/callback",
			LogoutURL:   "https://sso.tenant.com/auth/github/logout",
		}})

		rec := doRequest(t, handler, http.MethodPost, "/sso/activate", id.String(),
			map[string]any{"provider": "GITHUB", "settings": map[string]string{"client_id": "a", "client_secret": "b"}})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "/auth/github/callback")
	})

	t.Run("missing credential maps to 422", func(t *testing.T) {
		t.Parallel()

		handler := api.NewRouter(&stubService{ssoErr: sso.ErrMissingCredential})
		rec := doRequest(t, handler, http.MethodPost, "/sso/activate", id.String(),
			map[string]any{"provider": "AUTH0", "settings": map[string]string{}})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestRouterHealth(t *testing.T) {
	t.Parallel()

	handler := api.NewRouter(&stubService{},
		api.WithHealthcheck("db", func(context.Context) error { return nil }))

	rec := doRequest(t, handler, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"db": "ok"}`, rec.Body.String())
}
