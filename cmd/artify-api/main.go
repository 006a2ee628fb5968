// Command artify-api serves aggregated catalog views over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diegoralt/Artify/pkg/client"
	"github.com/diegoralt/Artify/pkg/config"
	"github.com/diegoralt/Artify/pkg/fanout"
	"github.com/diegoralt/Artify/pkg/logging"
	"github.com/diegoralt/Artify/pkg/repository"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("artify-api stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LoggingConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := cfg.RedisClient()
	if err != nil {
		return err
	}
	if redisClient != nil {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		defer redisClient.Close()
		logger.Info().Msg("Connected to Redis")
	} else {
		logger.Warn().Msg("ARTIFY_REDIS_URL not set, running without cache and shared quota state")
	}

	catalogClient, err := client.New(cfg.ClientConfig(redisClient))
	if err != nil {
		return err
	}
	defer catalogClient.Close()

	repo, err := repository.New(catalogClient, fanout.New(cfg.FanoutConfig()))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServer(repo, redisClient, cfg.PageSize).routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("user_agent", cfg.UserAgent).
			Msg("Starting artify-api")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
