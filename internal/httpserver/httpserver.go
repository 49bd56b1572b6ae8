package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/pkondrat/portaldav/internal/auth"
	"github.com/pkondrat/portaldav/internal/config"
	"github.com/pkondrat/portaldav/internal/dav"
	"github.com/pkondrat/portaldav/internal/metrics"
	"github.com/pkondrat/portaldav/internal/router"
	"github.com/pkondrat/portaldav/internal/storage"
	"github.com/pkondrat/portaldav/internal/storage/postgres"
	"github.com/pkondrat/portaldav/internal/storage/sqlite"
)

type Server struct {
	http   *http.Server
	logger zerolog.Logger
}

func NewServer(cfg *config.Config, logger zerolog.Logger) (*Server, func(), error) {
	var store storage.Store
	var err error

	switch cfg.Storage.Type {
	case "postgres":
		store, err = postgres.New(cfg.Storage.PostgresURL, logger)
	case "sqlite":
		store, err = sqlite.New(cfg.Storage.SQLitePath, logger)
	default:
		err = errors.New("unknown storage type: " + cfg.Storage.Type)
	}
	if err != nil {
		return nil, nil, err
	}

	var m *metrics.Metrics
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		metricsHandler = metrics.Handler(reg)
	}

	basic := &auth.BasicAuth{Store: store, Logger: logger}
	davh := dav.NewHandlers(cfg, store, logger)
	mux := router.New(cfg, davh, basic, m, metricsHandler, logger)

	srv := &Server{
		http: &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
	cleanup := func() {
		store.Close()
	}
	logger.Info().Msgf("listening on %s (storage=%s)", cfg.HTTP.Addr, cfg.Storage.Type)
	return srv, cleanup, nil
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
