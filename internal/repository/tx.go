package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresTxManager implements TxManager over a pgx pool
type PostgresTxManager struct {
	pool *pgxpool.Pool
}

// NewPostgresTxManager creates a new PostgresTxManager
func NewPostgresTxManager(pool *pgxpool.Pool) *PostgresTxManager {
	return &PostgresTxManager{pool: pool}
}

// WithTx begins a read-committed transaction unless ctx already carries one
func (m *PostgresTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, m.pool, fn)
}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return translate(err, "transaction", "", "")
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(fmt.Errorf("commit: %w", err), "transaction", "", "")
	}
	return nil
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// conn returns the transaction in ctx or the pool
func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// NewPostgresRepositories wires every repository over one pool
func NewPostgresRepositories(pool *pgxpool.Pool) *Repositories {
	events := NewPostgresEventRepository(pool)
	return &Repositories{
		Tx:        NewPostgresTxManager(pool),
		Events:    events,
		Tiers:     events,
		Venues:    NewPostgresVenueRepository(pool),
		Users:     NewPostgresUserRepository(pool),
		Reviews:   NewPostgresReviewRepository(pool),
		Checkins:  NewPostgresCheckinRepository(pool),
		Discovery: NewPostgresDiscoveryRepository(pool),
		Stats:     NewPostgresStatsRepository(pool),
	}
}
