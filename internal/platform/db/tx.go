package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX は *sql.DB と *sql.Tx の共通部分。Store はこれ越しにクエリを投げる。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RunInTx: fn が nil を返せば COMMIT、エラーなら ROLLBACK。panic 時も ROLLBACK してから再送出。
func RunInTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ReadOnly runs fn in a read-only transaction.
func ReadOnly(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx DBTX) error) error {
	return RunInTx(ctx, db, &sql.TxOptions{ReadOnly: true}, fn)
}
