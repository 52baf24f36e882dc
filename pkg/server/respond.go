package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
)

const maxBodyBytes = 1 << 20

var errInternal = errors.New("internal error")

type apiResponse struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiResponse{Data: data}); err != nil {
		log.Default().Named("http").Warn("could not write response", log.ErrorField(err))
	}
}

// statusOf maps the service error classes to http status and error code
func statusOf(err error) (status int, code string) {
	switch {
	case errors.Is(err, svcerr.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, svcerr.ErrPermissionDenied):
		return http.StatusForbidden, "permission_denied"
	case errors.Is(err, svcerr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, svcerr.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, svcerr.ErrInvalidReference):
		return http.StatusBadRequest, "invalid_reference"
	case errors.Is(err, svcerr.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, svcerr.ErrUpstream):
		return http.StatusBadGateway, "upstream_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError sends the error to the client. Storage, upstream and unknown
// errors are logged and replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.GetFromContext(r.Context()).Error("request failed",
			log.String("method", r.Method),
			log.String("path", r.URL.Path),
			log.ErrorField(err))
		msg = http.StatusText(status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // nothing left to do
	json.NewEncoder(w).Encode(apiResponse{Error: &apiError{Code: code, Message: msg}})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		return svcerr.Validation("body", "%s", err.Error())
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, svcerr.Validation(name, "invalid id %q", chi.URLParam(r, name))
	}
	return id, nil
}

// uuidQuery returns nil if the query parameter is not set
func uuidQuery(r *http.Request, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.FromString(raw)
	if err != nil {
		return nil, svcerr.Validation(name, "invalid id %q", raw)
	}
	return &id, nil
}

// intQuery returns def if the query parameter is not set
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, svcerr.Validation(name, "not a number: %q", raw)
	}
	return v, nil
}
