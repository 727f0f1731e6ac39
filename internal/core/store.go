package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTxAborted wraps savepoint failures. The transaction can no longer be used
// and the procedure must roll back.
var ErrTxAborted = errors.New("transaction aborted")

// RowStore is the storage a sync procedure reads from and writes to.
type RowStore interface {
	ListKeys(ctx context.Context, def TableDefinition) ([]string, error)
	MaxDate(ctx context.Context, def TableDefinition) (pgtype.Date, error)
	Purge(ctx context.Context, def TableDefinition, cutoff pgtype.Date) (int64, error)
	Insert(ctx context.Context, def TableDefinition, params any) error
	Count(ctx context.Context, def TableDefinition) (int64, error)
}

// Tx is a RowStore inside a transaction. A failed Insert leaves the
// transaction usable.
type Tx interface {
	RowStore
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is a RowStore that can open transactions.
type Store interface {
	RowStore
	Begin(ctx context.Context) (Tx, error)
}

// PoolStore runs table definitions against a pgx pool.
type PoolStore struct {
	pool *pgxpool.Pool
}

// NewPoolStore wraps pool.
func NewPoolStore(pool *pgxpool.Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Begin starts a transaction.
func (s *PoolStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

func (s *PoolStore) ListKeys(ctx context.Context, def TableDefinition) ([]string, error) {
	return listKeys(ctx, s.pool, def)
}

func (s *PoolStore) MaxDate(ctx context.Context, def TableDefinition) (pgtype.Date, error) {
	return maxDate(ctx, s.pool, def)
}

func (s *PoolStore) Purge(ctx context.Context, def TableDefinition, cutoff pgtype.Date) (int64, error) {
	return purge(ctx, s.pool, def, cutoff)
}

func (s *PoolStore) Insert(ctx context.Context, def TableDefinition, params any) error {
	return def.Insert(ctx, s.pool, params)
}

func (s *PoolStore) Count(ctx context.Context, def TableDefinition) (int64, error) {
	return count(ctx, s.pool, def)
}

// pgTx wraps every insert in its own savepoint so one bad row does not
// abort the whole transaction.
type pgTx struct {
	tx pgx.Tx
	sp int
}

func (t *pgTx) Insert(ctx context.Context, def TableDefinition, params any) error {
	t.sp++
	savepointName := fmt.Sprintf("sp_%d", t.sp)

	if _, err := t.tx.Exec(ctx, "SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("create savepoint: %w: %w", ErrTxAborted, err)
	}

	if err := def.Insert(ctx, t.tx, params); err != nil {
		if _, rbErr := t.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepointName); rbErr != nil {
			return fmt.Errorf("rollback savepoint: %w: %w", ErrTxAborted, errors.Join(err, rbErr))
		}
		return err
	}

	if _, err := t.tx.Exec(ctx, "RELEASE SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("release savepoint: %w: %w", ErrTxAborted, err)
	}
	return nil
}

func (t *pgTx) ListKeys(ctx context.Context, def TableDefinition) ([]string, error) {
	return listKeys(ctx, t.tx, def)
}

func (t *pgTx) MaxDate(ctx context.Context, def TableDefinition) (pgtype.Date, error) {
	return maxDate(ctx, t.tx, def)
}

func (t *pgTx) Purge(ctx context.Context, def TableDefinition, cutoff pgtype.Date) (int64, error) {
	return purge(ctx, t.tx, def, cutoff)
}

func (t *pgTx) Count(ctx context.Context, def TableDefinition) (int64, error) {
	return count(ctx, t.tx, def)
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

func listKeys(ctx context.Context, db DBTX, def TableDefinition) ([]string, error) {
	if def.ListKeys == nil {
		return nil, nil
	}
	return def.ListKeys(ctx, db)
}

func maxDate(ctx context.Context, db DBTX, def TableDefinition) (pgtype.Date, error) {
	if def.MaxDate == nil {
		return pgtype.Date{}, nil
	}
	return def.MaxDate(ctx, db)
}

func purge(ctx context.Context, db DBTX, def TableDefinition, cutoff pgtype.Date) (int64, error) {
	if def.Purge == nil {
		return 0, nil
	}
	return def.Purge(ctx, db, cutoff)
}

func count(ctx context.Context, db DBTX, def TableDefinition) (int64, error) {
	if def.Count == nil {
		return 0, nil
	}
	return def.Count(ctx, db)
}
