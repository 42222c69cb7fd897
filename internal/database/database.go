package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/config"
	log "github.com/sirupsen/logrus"
)

// Open opens a Postgres connection pool. The pool is the single process-wide
// database handle; callers own it and must Close it on shutdown.
func Open(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Infof("Connected to database %s", displayName(cfg))
	return pool, nil
}

// Migrate runs database migrations using golang-migrate against the configured DB.
func Migrate(cfg config.Database) error {
	migrationsPath, err := findMigrationsPath()
	if err != nil {
		return fmt.Errorf("failed to locate migrations directory: %w", err)
	}

	m, err := migrate.New("file://"+migrationsPath, migrateUrl(cfg))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	return nil
}

func connString(cfg config.Database) string {
	if cfg.Url != "" {
		return cfg.Url
	}
	escapedPassword := strings.ReplaceAll(cfg.Pass, "'", "\\'")
	return fmt.Sprintf("host=%s port=%d user=%s password='%s' dbname=%s sslmode=%s options='-c search_path=%s'",
		cfg.Host, cfg.Port, cfg.User, escapedPassword, cfg.Name, sslMode(cfg), cfg.Schema)
}

func migrateUrl(cfg config.Database) string {
	if cfg.Url != "" {
		return cfg.Url
	}
	escapedPassword := url.QueryEscape(cfg.Pass)
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&search_path=%s",
		cfg.User, escapedPassword, cfg.Host, cfg.Port, cfg.Name, sslMode(cfg), cfg.Schema)
}

func sslMode(cfg config.Database) string {
	if cfg.SslMode == "" {
		return "disable"
	}
	return cfg.SslMode
}

func displayName(cfg config.Database) string {
	if cfg.Url != "" {
		if u, err := url.Parse(cfg.Url); err == nil {
			return strings.TrimPrefix(u.Path, "/")
		}
		return "(url)"
	}
	return cfg.Name
}

// findMigrationsPath searches upward from the current working directory for a "migrations" directory
// so tests running inside package directories resolve the same files as the binary.
func findMigrationsPath() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, "migrations")
		info, err := os.Stat(candidate)
		if err == nil && info.IsDir() {
			return filepath.Abs(candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("migrations directory not found")
}
