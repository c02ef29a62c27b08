// Package app runs the server lifecycle: connect to the database, bind the
// listener, serve until cancelled or until a fatal failure.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/supermancell/cinebuddy/internal/auth"
	"github.com/supermancell/cinebuddy/internal/common"
	"github.com/supermancell/cinebuddy/internal/config"
	httpserver "github.com/supermancell/cinebuddy/internal/http"
	"github.com/supermancell/cinebuddy/internal/logging"
	"github.com/supermancell/cinebuddy/internal/omdb"
	"github.com/supermancell/cinebuddy/internal/tmdb"
	"github.com/supermancell/cinebuddy/internal/upstream"
)

// State is a lifecycle state.
type State int32

const (
	StateUnconfigured State = iota
	StateConnecting
	StateListening
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Store is the database handle the app owns for its lifetime.
type Store interface {
	common.UserStore
	Close() error
}

// Connector opens the database.
type Connector func(ctx context.Context) (Store, error)

// Option configures an App.
type Option func(*App)

// WithEventPublisher routes auth events to p.
func WithEventPublisher(p common.EventPublisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithAuthOptions passes extra options to the auth service.
func WithAuthOptions(opts ...auth.Option) Option {
	return func(a *App) { a.authOpts = append(a.authOpts, opts...) }
}

// App is one server process.
type App struct {
	cfg       config.AppConfig
	connect   Connector
	publisher common.EventPublisher
	authOpts  []auth.Option

	state     atomic.Int32
	listening chan struct{}
	addrMu    sync.RWMutex
	addr      net.Addr
}

// New creates an App in the Unconfigured state.
func New(cfg config.AppConfig, connect Connector, opts ...Option) *App {
	a := &App{
		cfg:       cfg,
		connect:   connect,
		listening: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the current lifecycle state.
func (a *App) State() State {
	return State(a.state.Load())
}

func (a *App) setState(s State) {
	prev := State(a.state.Swap(int32(s)))
	if prev != s {
		logging.Debug().Str("from", prev.String()).Str("to", s.String()).Msg("Lifecycle transition")
	}
}

// Listening is closed once the listener is bound.
func (a *App) Listening() <-chan struct{} {
	return a.listening
}

// Addr is the bound listener address, nil before Listening.
func (a *App) Addr() net.Addr {
	a.addrMu.RLock()
	defer a.addrMu.RUnlock()
	return a.addr
}

// Run blocks until ctx is cancelled (nil) or a fatal failure (error).
// The listener is never bound unless the database connect succeeds.
func (a *App) Run(ctx context.Context) error {
	a.setState(StateConnecting)

	store, err := a.connect(ctx)
	if err != nil {
		a.setState(StateFailed)
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	server, fatalCh, err := a.buildServer(store)
	if err != nil {
		a.setState(StateFailed)
		return err
	}

	a.setState(StateListening)
	ln, err := net.Listen("tcp", a.cfg.Server.Addr())
	if err != nil {
		a.setState(StateFailed)
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Server.Addr(), err)
	}
	a.addrMu.Lock()
	a.addr = ln.Addr()
	a.addrMu.Unlock()
	close(a.listening)
	logging.Info().Str("addr", ln.Addr().String()).Msg("Server running")

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(serveCtx, ln) }()

	select {
	case err := <-serveErr:
		if err != nil {
			a.setState(StateFailed)
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case err := <-fatalCh:
		a.setState(StateFailed)
		cancel()
		a.drain(serveErr)
		return err
	}
}

func (a *App) drain(serveErr <-chan error) {
	select {
	case err := <-serveErr:
		if err != nil {
			logging.Warn().Err(err).Msg("Server shutdown after fatal error was not clean")
		}
	case <-time.After(10 * time.Second):
		logging.Warn().Msg("Timed out waiting for server shutdown")
	}
}

func (a *App) buildServer(store Store) (*httpserver.Server, <-chan error, error) {
	httpClient, err := upstream.NewHTTPClient(a.cfg.Proxy)
	if err != nil {
		return nil, nil, err
	}

	tmdbClient, err := tmdb.NewClient(httpClient, a.cfg.TMDB.BaseURL, a.cfg.TMDB.APIKey, a.cfg.TMDB.AllowedPaths)
	if err != nil {
		return nil, nil, err
	}

	authOpts := a.authOpts
	if a.publisher != nil {
		authOpts = append([]auth.Option{auth.WithPublisher(a.publisher)}, authOpts...)
	}

	fatalCh := make(chan error, 1)
	server := httpserver.NewServer(httpserver.Deps{
		Config: a.cfg,
		Auth:   auth.NewService(store, a.cfg.Auth, authOpts...),
		OMDB:   omdb.NewClient(httpClient, a.cfg.OMDB.BaseURL, a.cfg.OMDB.APIKey),
		TMDB:   tmdbClient,
		OnFatal: func(err error) {
			select {
			case fatalCh <- err:
			default:
			}
		},
	})
	return server, fatalCh, nil
}

// ErrNotListening is returned by WaitListening when Run ends first.
var ErrNotListening = errors.New("app stopped before listening")

// WaitListening blocks until the listener is bound, done is closed or ctx
// ends.
func (a *App) WaitListening(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-a.listening:
		return nil
	case <-done:
		return ErrNotListening
	case <-ctx.Done():
		return ctx.Err()
	}
}
