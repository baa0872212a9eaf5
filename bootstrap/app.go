// Package bootstrap wires configuration, logging, the triage session, and
// the HTTP API together into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"triage/api"
	"triage/config"
	"triage/enrich"
	"triage/report"
	"triage/session"
)

// App represents the triage application with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	Session   *session.Session
	APIServer *api.API

	serviceWg  *sync.WaitGroup
	shutdownCh chan struct{}
}

// NewApp creates a new application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{
		serviceWg:  &sync.WaitGroup{},
		shutdownCh: make(chan struct{}),
	}

	// Bootstrap logging at info until the configured level is known.
	logger, sugar, err := InitLogger("info")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("Triage service starting...")

	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	if cfg.Logging.Level != "info" {
		logger, sugar, err = InitLogger(cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		app.Logger = logger
		app.Sugar = sugar
	}

	// Collaborator client, enrichment cache, and session
	client := enrich.NewClient(
		cfg.AnalyzeURL(),
		cfg.EnrichURL(),
		cfg.Backend.AuthToken,
		cfg.Backend.Timeout,
		app.Sugar,
	)
	cache := enrich.NewCache(cfg.Cache.Size, cfg.Cache.TTL)
	app.Session = session.New(client, cache, app.Sugar)

	reports := report.NewClient(cfg.ReportURL(), cfg.Backend.AuthToken, cfg.Backend.Timeout, app.Sugar)
	app.APIServer = api.NewAPI(app.Session, reports, cfg, app.Sugar)

	return app, nil
}

// Start starts the API server.
func (a *App) Start(ctx context.Context) error {
	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		addr := fmt.Sprintf("%s:%d", a.Config.API.Host, a.Config.API.Port)
		a.Sugar.Infof("API server started on %s", addr)

		var err error
		if a.Config.API.TLS {
			err = a.APIServer.StartTLS(addr, a.Config.API.CertFile, a.Config.API.KeyFile)
		} else {
			err = a.APIServer.Start(addr)
		}

		if err != nil && err != http.ErrServerClosed {
			a.Sugar.Errorf("API server error: %v", err)
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	close(a.shutdownCh)

	if a.APIServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop API server", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		a.Sugar.Info("All service goroutines stopped")
	case <-time.After(10 * time.Second):
		a.Sugar.Warn("Timed out waiting for service goroutines")
	}

	_ = a.Logger.Sync()
}
