package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/infrastructure/config"
)

const poolDialTimeout = 5 * time.Second

// NewPool opens the pgx pool used for batched credit grants.
func NewPool(cfg *config.Config, logger *logrus.Logger) (*pgxpool.Pool, func(), error) {
	if !cfg.UsesPostgres() {
		return nil, nil, fmt.Errorf("pgx pool requires postgres, got driver %q", cfg.DatabaseDriver())
	}

	pc, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		pc.MaxConns = cfg.Database.MaxConns
	}
	if cfg.Database.LogSQL {
		pc.ConnConfig.Tracer = sqlTracer(logger.WithField("component", "pgx"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), poolDialTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, nil, fmt.Errorf("open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, pool.Close, nil
}

func sqlTracer(entry logrus.FieldLogger) *tracelog.TraceLog {
	return &tracelog.TraceLog{
		Logger: tracelog.LoggerFunc(func(_ context.Context, lvl tracelog.LogLevel, msg string, data map[string]any) {
			entry.WithFields(logrus.Fields(data)).WithField("pgx_level", lvl.String()).Debug(msg)
		}),
		LogLevel: tracelog.LogLevelTrace,
	}
}
