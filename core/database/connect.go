package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"clanbase/core/logger"
	"log/slog"
)

// Connect opens the database connection, configures the pool, and verifies connectivity.
func Connect(cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	driver := cfg.driver()

	start := time.Now()
	var (
		sqlxDB *sqlx.DB
		err    error
	)
	switch driver {
	case DriverSQLite:
		sqlxDB, err = sqlx.ConnectContext(ctx, "sqlite", cfg.path())
	case DriverPostgres:
		dsn := fmt.Sprintf(
			"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
		)
		sqlxDB, err = sqlx.ConnectContext(ctx, "postgres", dsn)
	default:
		return nil, fmt.Errorf("db connect: unsupported driver %q", driver)
	}
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("driver", driver),
			slog.String("db", cfg.databaseLabel()),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite has a single writer; the pragma is per-connection,
		// so keep the pool at one connection.
		sqlxDB.SetMaxOpenConns(1)
		if _, pragmaErr := sqlxDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); pragmaErr != nil {
			_ = sqlxDB.Close()
			return nil, fmt.Errorf("db pragma: %w", pragmaErr)
		}
	} else {
		pool := cfg.MaxConnections
		if pool <= 0 {
			pool = 4
		}
		sqlxDB.SetMaxOpenConns(pool)
		sqlxDB.SetMaxIdleConns(pool)
		logger.DB.Debug("db pool configured",
			slog.String("event", "db.pool"),
			slog.Int("pool_open", pool),
		)
	}

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", driver),
		slog.String("db", cfg.databaseLabel()),
		slog.Duration("duration", logger.RoundMS(took)),
	)

	return sqlxDB, nil
}

func (c Config) databaseLabel() string {
	if c.driver() == DriverSQLite {
		return c.path()
	}
	return fmt.Sprintf("%s:%s/%s", c.Host, c.Port, c.Name)
}

// WaitForDatabase tries to connect until the database is ready or timeout is reached.
// SQLite files are always "ready"; this mainly waits for a postgres container.
func WaitForDatabase(driver, dsn string, timeout time.Duration) error {
	start := time.Now()
	var lastErr error
	for {
		db, err := sql.Open(driver, dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				_ = db.Close()
				return nil
			}
			_ = db.Close()
		}
		lastErr = err
		if time.Since(start) > timeout {
			return fmt.Errorf("timeout reached waiting for database: %w", lastErr)
		}
		time.Sleep(2 * time.Second)
	}
}
