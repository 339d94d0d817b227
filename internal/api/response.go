package api

import (
	"errors"
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/erazemk/knjiznica/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// storeError maps a store failure to a status code. Store errors carry a
// message fit for display; anything else is logged and replaced by
// fallback.
func storeError(w http.ResponseWriter, err error, fallback string) {
	var se *store.Error
	switch {
	case errors.Is(err, store.ErrNotFound) && errors.As(err, &se):
		jsonError(w, http.StatusNotFound, se.Message)
	case errors.Is(err, store.ErrConflict) && errors.As(err, &se):
		jsonError(w, http.StatusConflict, se.Message)
	default:
		slog.Error(fallback, "error", err)
		jsonError(w, http.StatusInternalServerError, fallback)
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
