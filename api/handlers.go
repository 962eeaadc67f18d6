package api

import (
	"encoding/json"
	"net/http"

	"github.com/hiredeck/domainkit/core/dnsrecord"
	"github.com/hiredeck/domainkit/core/logger"
	"github.com/hiredeck/domainkit/core/sso"
)

type bindDomainRequest struct {
	Domain   string `json:"domain"`
	Provider string `json:"provider,omitempty"`
}

type bindDomainResponse struct {
	Domain  string             `json:"domain"`
	Records []dnsrecord.Record `json:"records"`
}

func (r *Router) handleBindDomain(w http.ResponseWriter, req *http.Request) {
	id, ok := r.tenantID(w, req)
	if !ok {
		return
	}

	var body bindDomainRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}

	records, err := r.svc.BindDomain(req.Context(), id, body.Domain, body.Provider)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}

	writeJSON(w, http.StatusOK, bindDomainResponse{
		Domain:  dnsrecord.Normalize(body.Domain),
		Records: records,
	})
}

type verifyDomainResponse struct {
	Verified bool `json:"verified"`
}

func (r *Router) handleVerifyDomain(w http.ResponseWriter, req *http.Request) {
	id, ok := r.tenantID(w, req)
	if !ok {
		return
	}

	verified, err := r.svc.VerifyDomain(req.Context(), id)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyDomainResponse{Verified: verified})
}

type certificateResponse struct {
	Message string `json:"message"`
}

func (r *Router) handleRequestCertificate(w http.ResponseWriter, req *http.Request) {
	id, ok := r.tenantID(w, req)
	if !ok {
		return
	}

	msg, err := r.svc.RequestCertificate(req.Context(), id)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}

	writeJSON(w, http.StatusOK, certificateResponse{Message: msg})
}

func (r *Router) handleDomainStatus(w http.ResponseWriter, req *http.Request) {
	id, ok := r.tenantID(w, req)
	if !ok {
		return
	}

	status, err := r.svc.DomainStatus(req.Context(), id)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (r *Router) handleDetachDomain(w http.ResponseWriter, req *http.Request) {
	id, ok := r.tenantID(w, req)
	if !ok {
		return
	}

	if err := r.svc.DetachDomain(req.Context(), id); err != nil {
		r.writeDomainError(w, req, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type activateSSORequest struct {
	Provider string       `json:"provider"`
	Settings sso.Settings `json:"settings"`
}

func (r *Router) handleActivateSSO(w http.ResponseWriter, req *http.Request) {
	id, ok := r.tenantID(w, req)
	if !ok {
		return
	}

	var body activateSSORequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}

	endpoints, err := r.svc.ActivateSSO(req.Context(), id, body.Provider, body.Settings)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}

	writeJSON(w, http.StatusOK, endpoints)
}

func (r *Router) writeDomainError(w http.ResponseWriter, req *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		r.log.ErrorContext(req.Context(), "request failed",
			logger.Key("path", req.URL.Path), logger.Error(err))
	}
	writeError(w, status, code, err.Error())
}
