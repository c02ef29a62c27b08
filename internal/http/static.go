package http

import (
	"net/http"
	"path"
	"strings"

	"github.com/supermancell/cinebuddy/internal/logging"
)

const (
	apiPrefix = "/api"
	indexFile = "/index.html"
)

func isAPIPath(p string) bool {
	return strings.HasPrefix(p, apiPrefix)
}

// spaHandler serves files from the built frontend and falls back to the
// entry document for anything else, so client-side routes resolve.
type spaHandler struct {
	root http.FileSystem
}

func newSPAHandler(dir string) *spaHandler {
	return &spaHandler{root: http.Dir(dir)}
}

func (h *spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if isAPIPath(r.URL.Path) {
		apiNotFound(w, r)
		return
	}

	if name := path.Clean("/" + r.URL.Path); name != "/" {
		if h.serveFile(w, r, name) {
			return
		}
	}

	w.Header().Set("Cache-Control", "no-cache")
	if !h.serveFile(w, r, indexFile) {
		logging.Ctx(r.Context()).Warn().Msg("SPA entry document missing from static directory")
		http.NotFound(w, r)
	}
}

// serveFile serves name if it is a regular file and reports whether it did.
func (h *spaHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) bool {
	f, err := h.root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

// handleUnmatched is the router's not-found and method-not-allowed handler.
func (s *Server) handleUnmatched(w http.ResponseWriter, r *http.Request) {
	switch {
	case isAPIPath(r.URL.Path):
		apiNotFound(w, r)
	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		s.spa.ServeHTTP(w, r)
	default:
		http.NotFound(w, r)
	}
}
