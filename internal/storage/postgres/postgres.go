// Package postgres implements dataset, model and prediction stores on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

// Pool defaults, unless the DSN sets pool_max_conns or statement_timeout.
const (
	defaultMaxConns         = 4
	defaultStatementTimeout = 2 * time.Minute

	uniqueViolation = "23505"
)

// Pool is the connection pool shared by the stores.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to dsn and pings the server. pool_max_conns in the DSN
// overrides the default pool size.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["statement_timeout"]; !ok {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(defaultStatementTimeout.Milliseconds())
	}
	if !strings.Contains(dsn, "pool_max_conns") {
		cfg.MaxConns = defaultMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// inTx runs fn in a transaction, committing when fn returns nil.
func (p *Pool) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// mapError converts driver errors into storage errors and wraps the rest
// with op.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrDuplicateKey
	}
	return fmt.Errorf("%s: %w", op, err)
}

// paramsToArrays splits normalization params into float8[] columns.
func paramsToArrays(p domain.NormalizationParams) (means, stds []float64) {
	return p.Means[:], p.Stds[:]
}

func paramsFromArrays(means, stds []float64) (domain.NormalizationParams, error) {
	var p domain.NormalizationParams
	if len(means) != domain.FeatureCount || len(stds) != domain.FeatureCount {
		return p, fmt.Errorf("params have %d means and %d stds, want %d: %w",
			len(means), len(stds), domain.FeatureCount, domain.ErrShapeMismatch)
	}
	copy(p.Means[:], means)
	copy(p.Stds[:], stds)
	return p, nil
}
