package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bobby4fischer/pettrack/internal/repository"
	"github.com/bobby4fischer/pettrack/internal/service"
)

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps the service error taxonomy onto status codes. Messages
// for 4xx responses pass through because they are written for users; 5xx
// bodies never leak internals.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, service.ErrGateDenied):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrConflict):
		respondJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrInsufficientFunds):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrValidation):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		s.logger.Error("request_failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// decodeBody parses a JSON request body into dst. An empty body leaves dst
// at its zero value, for endpoints whose parameters are all optional.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", service.ErrValidation)
	}
	return nil
}
