package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/supermancell/cinebuddy/internal/logging"
	"github.com/supermancell/cinebuddy/internal/omdb"
	"github.com/supermancell/cinebuddy/internal/tmdb"
)

// omdbPreviewSize is how many search results the OMDB check returns.
const omdbPreviewSize = 2

type omdbTestResponse struct {
	Status       string              `json:"status"`
	Message      string              `json:"message"`
	TotalResults string              `json:"totalResults"`
	Data         []omdb.SearchResult `json:"data"`
}

// handleTestOMDB runs a fixed search against OMDB to prove the key works.
func (s *Server) handleTestOMDB(w http.ResponseWriter, r *http.Request) {
	result, err := s.omdb.Search(r.Context(), s.cfg.OMDB.TestQuery)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("OMDB request failed")
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	data := result.Search
	if len(data) > omdbPreviewSize {
		data = data[:omdbPreviewSize]
	}
	if data == nil {
		data = []omdb.SearchResult{}
	}

	writeJSON(w, r, http.StatusOK, omdbTestResponse{
		Status:       "success",
		Message:      "OMDB API is working",
		TotalResults: result.TotalResults,
		Data:         data,
	})
}

// handleTMDBProxy forwards /api/tmdb/<path>?<query> to TMDB and relays the
// JSON body. Paths outside a configured allow-list look like unknown routes.
func (s *Server) handleTMDBProxy(w http.ResponseWriter, r *http.Request) {
	path := tmdbPath(r)

	body, err := s.tmdb.Get(r.Context(), path, r.URL.Query())
	if errors.Is(err, tmdb.ErrPathNotAllowed) {
		apiNotFound(w, r)
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("path", path).Msg("TMDB request failed")
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{
			Status:  "error",
			Message: "Failed to fetch data from TMDB",
			Error:   err.Error(),
		})
		return
	}

	writeRawJSON(w, r, http.StatusOK, body)
}

// tmdbPath returns the wildcard suffix in escaped form. chi matches on
// RawPath when the request has one and on the decoded Path otherwise.
func tmdbPath(r *http.Request) string {
	suffix := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		return suffix
	}
	return (&url.URL{Path: suffix}).EscapedPath()
}
