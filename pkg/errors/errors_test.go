package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestSQLError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"mysql dupe key", &mysql.MySQLError{Number: 1062}, ErrDupeKey},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, ErrDeadlock},
		{"mysql lock wait timeout", &mysql.MySQLError{Number: 1205}, ErrLockWaitTimeout},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, ErrDupeKey},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, ErrLockWaitTimeout},
		{"sqlite locked", sqlite3.Error{Code: sqlite3.ErrLocked}, ErrLockWaitTimeout},
		{"no rows", sql.ErrNoRows, ErrRowsNotFound},
		{"wrapped no rows", fmt.Errorf("find: %w", sql.ErrNoRows), ErrRowsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SQLError(tt.in))
		})
	}
}

func TestSQLErrorPassesThroughUnknown(t *testing.T) {
	unknown := errors.New("connection refused")
	assert.Equal(t, unknown, SQLError(unknown))

	mysqlOther := &mysql.MySQLError{Number: 1064, Message: "syntax error"}
	assert.Equal(t, error(mysqlOther), SQLError(mysqlOther))
}

func TestToolMissingErr(t *testing.T) {
	err := ToolMissingErr("cppcheck", "")
	assert.Contains(t, err.Error(), `"cppcheck"`)
	assert.Contains(t, err.Error(), "not found in PATH")

	err = ToolMissingErr("drmemory", "install it from drmemory.org")
	assert.Contains(t, err.Error(), "install it from drmemory.org")
}

func TestAPIErrHelpers(t *testing.T) {
	assert.Equal(t, "Missing file in request body.", MissingInReqErr("file").Error())
	assert.Equal(t, "project not found for given id.", EntityNotFoundErr("project", "id").Error())
	assert.Equal(t, "Invalid page in request query parameters.", InvalidQueryErr("page").Error())
	assert.Equal(t, "Missing project_id in request query parameters.", MissingInQueryErr("project_id").Error())
}
