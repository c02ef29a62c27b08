// Package http wires the HTTP surface: health, auth, the OMDB/TMDB proxy
// endpoints and the static SPA bundle.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"

	"github.com/supermancell/cinebuddy/internal/auth"
	"github.com/supermancell/cinebuddy/internal/config"
	"github.com/supermancell/cinebuddy/internal/logging"
	"github.com/supermancell/cinebuddy/internal/omdb"
)

const shutdownTimeout = 5 * time.Second

// OMDBSearcher is the OMDB operation the proxy endpoint needs.
type OMDBSearcher interface {
	Search(ctx context.Context, term string) (*omdb.SearchResponse, error)
}

// TMDBForwarder is the TMDB operation the proxy endpoint needs.
type TMDBForwarder interface {
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
}

// Deps are the collaborators the routes call into.
type Deps struct {
	Config config.AppConfig
	Auth   *auth.Service
	OMDB   OMDBSearcher
	TMDB   TMDBForwarder
	// OnFatal is invoked by the error boundary after a handler panic.
	OnFatal func(error)
}

// Server owns the router and the underlying http.Server.
type Server struct {
	cfg    config.AppConfig
	auth   *auth.Service
	omdb   OMDBSearcher
	tmdb   TMDBForwarder
	spa    *spaHandler
	router chi.Router
	srv    *http.Server
}

// NewServer builds the router. Routes are matched in registration order:
// health, auth group, proxy endpoints, static files, catch-all.
func NewServer(d Deps) *Server {
	s := &Server{
		cfg:  d.Config,
		auth: d.Auth,
		omdb: d.OMDB,
		tmdb: d.TMDB,
		spa:  newSPAHandler(d.Config.Server.StaticDir),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger)
	r.Use(FailFast(d.OnFatal))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.Config.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.NotFound(s.handleUnmatched)
	r.MethodNotAllowed(s.handleUnmatched)

	r.Get("/api/health", s.handleHealth)

	r.Route("/api/auth", func(r chi.Router) {
		r.NotFound(apiNotFound)
		r.MethodNotAllowed(apiNotFound)

		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Get("/me", s.handleMe)
	})

	r.Get("/api/test-omdb", s.handleTestOMDB)
	r.Get("/api/tmdb/*", s.handleTMDBProxy)

	r.Get("/*", s.spa.ServeHTTP)

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Info().Msg("HTTP server stopped gracefully")
	return nil
}
