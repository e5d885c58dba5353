package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
)

//go:embed schemas/*.sql
var schemaFiles embed.FS

const (
	poolMaxConnIdleTime     = 5 * time.Minute
	poolHealthCheckPeriod   = 30 * time.Second
	schemaVersionTable      = "public.schema_version"
	migrationUnlockDeadline = 5 * time.Second
)

// migrationLockKey is the session advisory lock gateway instances queue on
// before touching the schema.
const migrationLockKey int64 = 0x74616f646976

// Connect opens the user and audit store and pings it. tracer may be nil.
func Connect(ctx context.Context, databaseURL string, tracer pgx.QueryTracer) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(databaseURL, tracer)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	slog.Info("Connected to Postgres",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"tls", cfg.ConnConfig.TLSConfig != nil,
		"max_conns", cfg.MaxConns)
	return pool, nil
}

func poolConfig(databaseURL string, tracer pgx.QueryTracer) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	cfg.MaxConnIdleTime = poolMaxConnIdleTime
	cfg.HealthCheckPeriod = poolHealthCheckPeriod
	if tracer != nil {
		cfg.ConnConfig.Tracer = tracer
	}
	return cfg, nil
}

// Migrate brings the users and trading_actions tables up to the embedded
// schema. Instances that start together take turns on an advisory lock.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.AcquireFunc(ctx, func(c *pgxpool.Conn) error {
		conn := c.Conn()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
			return fmt.Errorf("failed to take migration lock: %w", err)
		}
		defer unlockMigrations(conn)

		return applySchema(ctx, conn)
	})
}

func applySchema(ctx context.Context, conn *pgx.Conn) error {
	schemas, err := fs.Sub(schemaFiles, "schemas")
	if err != nil {
		return fmt.Errorf("failed to open embedded schemas: %w", err)
	}

	m, err := migrate.NewMigrator(ctx, conn, schemaVersionTable)
	if err != nil {
		return fmt.Errorf("failed to prepare schema migrator: %w", err)
	}
	if err := m.LoadMigrations(schemas); err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	target := int32(len(m.Migrations))
	if from == target {
		slog.Info("Database schema is current", "version", from)
		return nil
	}

	m.OnStart = func(sequence int32, name, _, _ string) {
		slog.Info("Applying schema change", "sequence", sequence, "name", name)
	}
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate schema from version %d: %w", from, err)
	}

	slog.Info("Database schema migrated", "from", from, "to", target)
	return nil
}

// unlockMigrations runs on a fresh context so a cancelled startup still
// releases the lock.
func unlockMigrations(conn *pgx.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), migrationUnlockDeadline)
	defer cancel()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockKey); err != nil {
		slog.Error("Failed to release migration lock", "error", err)
	}
}
