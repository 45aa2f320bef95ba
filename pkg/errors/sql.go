package errors

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// ErrDupeKey is returned when a unique index prevents a value from being
// inserted or updated. CanRetry returns false on this error.
var ErrDupeKey = New("resource already exists")

// ErrDeadlock is returned when there is a transaction deadlock.
var ErrDeadlock = New("transaction deadlock")

// ErrLockWaitTimeout is returned when the database could not grab the
// required locks within its budget. Retried by the transaction wrapper.
var ErrLockWaitTimeout = New("lock wait timeout")

// ErrRowsNotFound is returned by Scan when QueryRow doesn't return a
// row.
var ErrRowsNotFound = sql.ErrNoRows

// Error 1213: Deadlock found when trying to get lock; try restarting transaction
// ERROR 1205 (HY000): Lock wait timeout exceeded; try restarting transaction
const (
	mysqlDupEntryErrCode        = 1062
	mysqlDeadlockErrCode        = 1213
	mysqlLockWaitTimeoutErrCode = 1205
)

// SQLError returns an error in this package if possible. The error return value
// is an error in this package if the given error maps to one, else the given
// error is returned.
func SQLError(err error) error {
	if err == nil {
		return nil
	}
	if mysqlErr, ok := err.(*mysql.MySQLError); ok {
		switch mysqlErr.Number {
		case mysqlDupEntryErrCode:
			return ErrDupeKey
		case mysqlDeadlockErrCode:
			return ErrDeadlock
		case mysqlLockWaitTimeoutErrCode:
			return ErrLockWaitTimeout
		}
		return mysqlErr
	}
	if sqliteErr, ok := err.(sqlite3.Error); ok {
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint:
			return ErrDupeKey
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return ErrLockWaitTimeout
		}
		return sqliteErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRowsNotFound
	}
	return err
}
