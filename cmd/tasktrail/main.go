// Command tasktrail serves the task API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/tasktrail/internal/api"
	"github.com/persistorai/tasktrail/internal/auth"
	"github.com/persistorai/tasktrail/internal/config"
	"github.com/persistorai/tasktrail/internal/service"
	"github.com/persistorai/tasktrail/internal/ws"
)

const (
	shutdownTimeout = 10 * time.Second
	eventQueueSize  = 1000
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("loading config")
	}

	configureLogger(log, cfg)

	if err := run(log, cfg); err != nil {
		log.WithError(err).Fatal("tasktrail exited")
	}
}

func configureLogger(log *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}

func run(log *logrus.Logger, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opened, err := openBackend(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := opened.backend.Close(); err != nil {
			log.WithError(err).Warn("closing store")
		}
	}()

	hub := ws.NewHub(log)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	// Postgres announces commits through LISTEN/NOTIFY; the other backends
	// hand events to an in-process worker after commit.
	var events service.EventEnqueuer
	if opened.notify != nil {
		if err := opened.notify(gctx, hub); err != nil {
			return err
		}
	} else {
		worker := service.NewEventWorker(hub, log, eventQueueSize)
		events = worker
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	}

	router := api.NewRouter(gctx, &api.RouterDeps{
		Log:           log,
		Tasks:         service.NewCoordinator(opened.backend, events, log, cfg.TxTimeout),
		Reads:         service.NewQueries(opened.backend, log),
		Store:         opened.backend,
		Hub:           hub,
		Verifier:      auth.NewVerifier([]byte(cfg.JWTSecret.Value()), cfg.JWTIssuer),
		CORSOrigins:   cfg.CORSOrigins,
		Version:       config.Version,
		Backend:       cfg.StoreBackend,
		SchemaVersion: opened.schemaVersion,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":    srv.Addr,
			"backend": cfg.StoreBackend,
			"version": config.Version,
		}).Info("tasktrail listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
