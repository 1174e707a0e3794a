package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager executes a function within a database transaction,
// passing the underlying transaction handle via `qx`.
//
// Repositories accept `qx Tx` and must gracefully accept nil (the
// non-transactional path). The concrete type is infra-defined
// (pgx.Tx for Postgres, ignored by the in-memory store).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
