package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/multitenant/pkg/logger"
	"github.com/dmitrymomot/multitenant/pkg/redis"
	"github.com/dmitrymomot/multitenant/pkg/sqldb"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
	"github.com/dmitrymomot/multitenant/pkg/tenantdb"
)

type envelope struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *errorDetail   `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	errBadRequest      = errors.New("bad request")
	errNotFound        = errors.New("not found")
	errReadOnlyTenants = errors.New("tenant source is read-only")
	errUnauthorized    = errors.New("unauthorized")
)

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Data: data})
}

func respondMeta(w http.ResponseWriter, data any, meta map[string]any) {
	writeJSON(w, http.StatusOK, envelope{Data: data, Meta: meta})
}

// respondError maps domain errors onto HTTP statuses. Anything unknown is
// logged and reported as 500 without leaking the message.
func respondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, tenantdb.ErrTenantConnectionNotFound), errors.Is(err, tenant.ErrUnknownTenant):
		status, code = http.StatusNotFound, "tenant_not_found"
	case errors.Is(err, tenantdb.ErrTenantIDNotProvided), errors.Is(err, tenant.ErrNoTenantInContext):
		status, code = http.StatusUnauthorized, "tenant_required"
	case errors.Is(err, errUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errNotFound), sqldb.IsNotFoundError(err):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, tenantdb.ErrTenantExists), sqldb.IsDuplicateKeyError(err):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, errBadRequest), errors.Is(err, tenantdb.ErrInvalidTenantID), errors.Is(err, tenant.ErrInvalidIdentifier):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, errReadOnlyTenants):
		status, code = http.StatusNotImplemented, "read_only"
	case errors.Is(err, redis.ErrTenantSetFailed):
		status, code = http.StatusServiceUnavailable, "unavailable"
	}

	msg := http.StatusText(status)
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method), slog.String("path", r.URL.Path), logger.Error(err))
	} else {
		msg = err.Error()
	}
	writeJSON(w, status, envelope{Error: &errorDetail{Code: code, Message: msg}})
}

// tenantErrorHandler renders tenant middleware failures with the same
// envelope as the rest of the API.
func tenantErrorHandler(log *slog.Logger) tenant.ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		respondError(w, r, log, err)
	}
}
