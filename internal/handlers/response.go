package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/AnshRaj112/propertyhub-backend/internal/apperror"
	"github.com/AnshRaj112/propertyhub-backend/internal/provider"
)

const maxBodyBytes = 1 << 20

const redactedUpstream = "upstream service unavailable"

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperror.Wrap(apperror.KindValidation, "Invalid request body", err)
	}
	return nil
}

// responder turns errors into the JSON error envelope.
type responder struct {
	production bool
}

// errorStatus resolves status and client message for err. In production,
// transport failures and internal errors do not leak their details.
func (rs responder) errorStatus(err error) (int, string) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Wrap(apperror.KindInternal, err.Error(), err)
	}
	message := appErr.Message
	if rs.production {
		var perr *provider.Error
		switch {
		case appErr.Kind == apperror.KindUpstream && !errors.As(err, &perr):
			message = redactedUpstream
		case appErr.Kind == apperror.KindInternal:
			message = "Internal server error"
		}
	}
	return apperror.Status(appErr.Kind), message
}

func (rs responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := rs.errorStatus(err)
	logError(r, status, err)
	writeJSON(w, status, map[string]string{"error": message})
}

func logError(r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		return
	}
	hlog.FromRequest(r).Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
}

// NotFound answers every unmatched route and unsupported method.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Endpoint not found"})
}
