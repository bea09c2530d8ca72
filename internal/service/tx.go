package service

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/room-allocation-api/internal/repository"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// withTx runs fn in a transaction. Any error from fn, a panic or a failed commit rolls back every statement.
// Deadlock and serialization aborts surface as ErrConcurrentUpdate so callers can retry.
func withTx(ctx context.Context, provider txProvider, fn func(tx *sqlx.Tx) error) (err error) {
	if provider == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := provider.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			if repository.IsRetryable(err) {
				err = appErrors.Wrap(err, appErrors.ErrConcurrentUpdate.Code, appErrors.ErrConcurrentUpdate.Status, appErrors.ErrConcurrentUpdate.Message)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Internal(err, "failed to commit transaction")
	}
	return nil
}
