package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rs/zerolog"
)

type Responder struct {
	logger zerolog.Logger
}

func NewResponder(logger zerolog.Logger) Responder {
	return Responder{logger}
}

// WriteJSON writes data with status 200.
func (r Responder) WriteJSON(w http.ResponseWriter, data any) {
	r.WriteJSONStatus(w, http.StatusOK, data)
}

func (r Responder) WriteJSONStatus(w http.ResponseWriter, status int, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	const maxResponseSize = 10 * 1024 * 1024
	if len(jsonData) > maxResponseSize {
		r.logger.Error().
			Int("responseSize", len(jsonData)).
			Int("maxSize", maxResponseSize).
			Msg("response too large")
		status = http.StatusInternalServerError
		jsonData = []byte(`{"error":"Response too large","status":"error"}`)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(jsonData); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

func (r Responder) WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError renders *errs.ValidationErrors as a per-field map and
// *errs.ApiErr with its own status. Anything else is logged and becomes a
// generic 500.
func (r Responder) WriteError(w http.ResponseWriter, err error) {
	var validationErr *errs.ValidationErrors
	if errors.As(err, &validationErr) {
		r.WriteJSONStatus(w, http.StatusBadRequest, ErrorResponse{
			Error:  errs.ErrValidation.Error(),
			Status: "validation_error",
			Fields: validationErr.Fields,
		})
		return
	}

	var apiErr *errs.ApiErr
	if !errors.As(err, &apiErr) {
		r.logger.Error().Err(err).Msg("unhandled error")
		r.WriteJSONStatus(w, http.StatusInternalServerError, ErrorResponse{
			Error:  "Internal Server Error",
			Status: "error",
		})
		return
	}

	response := ErrorResponse{
		Error:   apiErr.Error(),
		Status:  "error",
		Field:   apiErr.Field,
		Details: apiErr.Details,
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		r.logger.Error().Str("error", apiErr.GetFullError()).Msg("server error")
		response.Error = apiErr.Message()
	} else if apiErr.Cause != nil {
		r.logger.Debug().Str("error", apiErr.GetFullError()).Msg("client error")
	}

	r.WriteJSONStatus(w, apiErr.StatusCode, response)
}

// WriteValidationError reports a single invalid field.
func (r Responder) WriteValidationError(w http.ResponseWriter, field string, message string) {
	r.WriteError(w, errs.NewFieldError(field, message))
}

var (
	errNotFoundRoute    = errs.NewNotFoundError("not found")
	errMethodNotAllowed = errs.NewApiErr(http.StatusMethodNotAllowed, "method not allowed")
)
