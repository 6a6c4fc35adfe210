package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"movie-trivia-service/internal/domain"
	"movie-trivia-service/internal/engine"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// classify maps use case errors to a status and a stable error code.
func classify(err error) (int, errorBody) {
	body := errorBody{Message: err.Error()}
	switch {
	case errors.Is(err, domain.ErrCatalogUnavailable):
		body.Error, body.Hint = "catalog_unavailable", "the movie catalog did not answer, try again"
		return http.StatusBadGateway, body
	case errors.Is(err, domain.ErrInsufficientCandidates):
		body.Error, body.Hint = "insufficient_candidates", "relax the filters and try again"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		body.Error = "not_found"
		return http.StatusNotFound, body
	case errors.Is(err, domain.ErrUnknownMode):
		body.Error = "unknown_mode"
		return http.StatusNotFound, body
	case errors.Is(err, domain.ErrSessionEnded), errors.Is(err, engine.ErrStaleEvent), errors.Is(err, engine.ErrNotStarted):
		body.Error = "conflict"
		return http.StatusConflict, body
	case errors.Is(err, domain.ErrEmailTaken):
		body.Error = "email_taken"
		return http.StatusConflict, body
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthorized):
		body.Error = "unauthorized"
		return http.StatusUnauthorized, body
	case errors.Is(err, domain.ErrInvalidInput):
		body.Error = "invalid_input"
		return http.StatusBadRequest, body
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal", Message: "unexpected error"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, body)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed json body", domain.ErrInvalidInput)
	}
	return nil
}

// decodeOptional is decodeBody for endpoints whose body may be empty.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: malformed json body", domain.ErrInvalidInput)
}
