package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/config"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/database"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Application wires configuration, database, router, and server lifecycle.
type Application struct {
	cfg  config.Application
	pool *pgxpool.Pool
	srv  *http.Server
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load("./config/application.yaml")
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(cfg.Database); err != nil {
		return nil, err
	}
	pool, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	deps, err := BuildDependencies(pool, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := deps.UserService.SeedUsers(ctx, cfg.Auth.SeedUsers, cfg.Auth.DefaultPassword); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}

	srv := &http.Server{
		Handler:      NewRouter(deps, cfg),
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		WriteTimeout: cfg.Server.WriteTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Application{cfg: cfg, pool: pool, srv: srv}, nil
}

// Run serves HTTP until SIGINT or SIGTERM, then drains requests and closes the pool.
func (a *Application) Run() error {
	defer a.pool.Close()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return <-errCh
}
