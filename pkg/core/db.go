package core

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// DB is a pool of zero or more underlying connections to
// the cortex database.
type DB interface {
	// Execute executes a function. Any error that is returned from the function
	// is returned from the Execute() method.
	Execute(fn func(conn *sqlx.DB) error) error

	// ExecuteTransactionWithRetry executes queries in a transaction and retries
	// the transaction on deadlock or lock wait timeout.
	ExecuteTransactionWithRetry(
		ctx context.Context,
		maxRetries uint,
		delay,
		maxJitter time.Duration,
		errorMsg string,
		fn func(tx *sqlx.Tx) error) error

	// Close closes the database connection.
	Close() error
}
