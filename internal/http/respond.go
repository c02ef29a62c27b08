package http

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/supermancell/cinebuddy/internal/logging"
)

const apiNotFoundMessage = "API endpoint not found"

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type notFoundResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeRawJSON(w, r, status, data)
}

func writeRawJSON(w http.ResponseWriter, r *http.Request, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, errorResponse{Status: "error", Message: message})
}

// apiNotFound answers API paths that matched no route.
func apiNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusNotFound, notFoundResponse{Message: apiNotFoundMessage})
}
