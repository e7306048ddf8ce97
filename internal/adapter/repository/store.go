package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/entity"
)

const _uniqueViolation = "23505"

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// store runs ent SQL builders against the driver's *sql.DB.
type store struct {
	db      *sql.DB
	dialect string
	log     logrus.FieldLogger
}

func newStore(drv *entsql.Driver, logger logrus.FieldLogger) store {
	return store{db: drv.DB(), dialect: drv.Dialect(), log: logger}
}

func (s store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

func (s store) trace(query string, args []any) {
	s.log.WithFields(logrus.Fields{"sql": query, "args": len(args)}).Trace("sql")
}

func (s store) exec(ctx context.Context, q execQuerier, b entsql.Querier) (sql.Result, error) {
	query, args := b.Query()
	s.trace(query, args)
	return q.ExecContext(ctx, query, args...)
}

func (s store) query(ctx context.Context, q execQuerier, b entsql.Querier) (*sql.Rows, error) {
	query, args := b.Query()
	s.trace(query, args)
	return q.QueryContext(ctx, query, args...)
}

func (s store) queryRow(ctx context.Context, q execQuerier, b entsql.Querier) *sql.Row {
	query, args := b.Query()
	s.trace(query, args)
	return q.QueryRowContext(ctx, query, args...)
}

// affected runs an update and reports whether any row matched.
func (s store) affected(ctx context.Context, q execQuerier, b entsql.Querier) (bool, error) {
	res, err := s.exec(ctx, q, b)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			s.log.WithError(rerr).Warn("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal json column: %w", err)
	}
	return string(data), nil
}

func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal json column: %w", err)
	}
	return nil
}

// translateError maps driver-level unique violations onto entity.ErrDuplicateRecord.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == _uniqueViolation {
		return fmt.Errorf("%w: %s", entity.ErrDuplicateRecord, pgErr.ConstraintName)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == _uniqueViolation {
		return fmt.Errorf("%w: %s", entity.ErrDuplicateRecord, pqErr.Constraint)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) &&
		(liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return entity.ErrDuplicateRecord
	}
	return err
}
