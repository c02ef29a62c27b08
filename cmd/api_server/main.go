// Command api_server runs the CineBuddy backend: auth, the OMDB/TMDB proxy
// endpoints and the built frontend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/supermancell/cinebuddy/internal/app"
	"github.com/supermancell/cinebuddy/internal/config"
	"github.com/supermancell/cinebuddy/internal/logging"
	"github.com/supermancell/cinebuddy/internal/mongodb"
	"github.com/supermancell/cinebuddy/internal/redisclient"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("static_dir", cfg.Server.StaticDir).
		Bool("use_proxy", cfg.Proxy.UseProxy).
		Bool("redis", cfg.Redis.Enabled()).
		Msg("CineBuddy API server starting")

	if cfg.Auth.SecretGenerated {
		logging.Warn().Msg("JWT_SECRET not set, using a random per-process secret; tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []app.Option
	if cfg.Redis.Enabled() {
		redisClient, err := redisclient.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.AuthEventsKey)
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to connect to Redis, auth events disabled")
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logging.Warn().Err(err).Msg("Failed to close Redis client")
				}
			}()
			logging.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
			opts = append(opts, app.WithEventPublisher(redisClient))
		}
	}

	connect := func(ctx context.Context) (app.Store, error) {
		client, err := mongodb.NewClient(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	if err := app.New(cfg, connect, opts...).Run(ctx); err != nil {
		logging.Error().Err(err).Msg("Server stopped")
		return 1
	}

	logging.Info().Msg("Shutdown complete")
	return 0
}
