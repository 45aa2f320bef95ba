package executions

import (
	"context"
	"time"

	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"

	jsoniter "github.com/json-iterator/go"
	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v4/zero"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type executionStore struct {
	db     core.DB
	logger lumber.Logger
}

// New returns a new ExecutionStore.
func New(db core.DB, logger lumber.Logger) core.ExecutionStore {
	return &executionStore{db: db, logger: logger}
}

// executionRow carries the json-encoded columns alongside the scalar ones.
type executionRow struct {
	*core.TestExecution
	CoverageJSON  zero.String `db:"coverage"`
	ArtifactsJSON zero.String `db:"artifacts"`
	ExtrasJSON    zero.String `db:"extras"`
}

func newRow(execution *core.TestExecution) (*executionRow, error) {
	row := &executionRow{TestExecution: execution}
	if execution.Coverage != nil {
		raw, err := json.Marshal(execution.Coverage)
		if err != nil {
			return nil, errs.ErrMarshalJSON
		}
		row.CoverageJSON = zero.StringFrom(string(raw))
	}
	if len(execution.Artifacts) > 0 {
		raw, err := json.Marshal(execution.Artifacts)
		if err != nil {
			return nil, errs.ErrMarshalJSON
		}
		row.ArtifactsJSON = zero.StringFrom(string(raw))
	}
	if len(execution.Extras) > 0 {
		raw, err := json.Marshal(execution.Extras)
		if err != nil {
			return nil, errs.ErrMarshalJSON
		}
		row.ExtrasJSON = zero.StringFrom(string(raw))
	}
	return row, nil
}

func (r *executionRow) hydrate() error {
	if r.CoverageJSON.Valid {
		coverage := new(core.CoverageSummary)
		if err := json.Unmarshal([]byte(r.CoverageJSON.String), coverage); err != nil {
			return errs.ErrUnMarshalJSON
		}
		r.Coverage = coverage
	}
	if r.ArtifactsJSON.Valid {
		if err := json.Unmarshal([]byte(r.ArtifactsJSON.String), &r.Artifacts); err != nil {
			return errs.ErrUnMarshalJSON
		}
	}
	if r.ExtrasJSON.Valid {
		if err := json.Unmarshal([]byte(r.ExtrasJSON.String), &r.Extras); err != nil {
			return errs.ErrUnMarshalJSON
		}
	}
	return nil
}

func (e *executionStore) Create(ctx context.Context, execution *core.TestExecution) error {
	row, err := newRow(execution)
	if err != nil {
		return err
	}
	return e.db.Execute(func(db *sqlx.DB) error {
		if _, err := db.NamedExecContext(ctx, insertQuery, row); err != nil {
			return errs.SQLError(err)
		}
		return nil
	})
}

func (e *executionStore) Find(ctx context.Context, executionID string) (*core.TestExecution, error) {
	row := &executionRow{TestExecution: &core.TestExecution{}}
	return row.TestExecution, e.db.Execute(func(db *sqlx.DB) error {
		r := db.QueryRowxContext(ctx, selectQuery, executionID)
		if err := r.StructScan(row); err != nil {
			return errs.SQLError(err)
		}
		return row.hydrate()
	})
}

func (e *executionStore) FindByProject(ctx context.Context, projectID string, offset, limit int) ([]*core.TestExecution, error) {
	executions := make([]*core.TestExecution, 0)
	return executions, e.db.Execute(func(db *sqlx.DB) error {
		rows, err := db.QueryxContext(ctx, selectByProjectQuery, projectID, limit, offset)
		if err != nil {
			return errs.SQLError(err)
		}
		defer rows.Close()
		for rows.Next() {
			row := &executionRow{TestExecution: &core.TestExecution{}}
			if err := rows.StructScan(row); err != nil {
				return errs.SQLError(err)
			}
			if err := row.hydrate(); err != nil {
				return err
			}
			executions = append(executions, row.TestExecution)
		}
		if rows.Err() != nil {
			return rows.Err()
		}
		if len(executions) == 0 {
			return errs.ErrRowsNotFound
		}
		return nil
	})
}

func (e *executionStore) MarkRunning(ctx context.Context, executionID string, startedAt time.Time) error {
	return e.db.Execute(func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, markRunningQuery, startedAt, executionID)
		if err != nil {
			return errs.SQLError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		// zero rows means the execution is gone or was already moved past
		// pending, the forward machine rejects the transition either way
		if affected == 0 {
			return errs.ErrInvalidTransition
		}
		return nil
	})
}

func (e *executionStore) Finish(ctx context.Context, execution *core.TestExecution) error {
	if !execution.Status.Terminal() {
		return errs.ErrInvalidTransition
	}
	row, err := newRow(execution)
	if err != nil {
		return err
	}
	return e.db.Execute(func(db *sqlx.DB) error {
		res, err := db.NamedExecContext(ctx, finishQuery, row)
		if err != nil {
			return errs.SQLError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return errs.ErrInvalidTransition
		}
		return nil
	})
}

const insertQuery = `
INSERT
	INTO
	test_executions(
		id,
		project_id,
		test_case_id,
		executor_type,
		status,
		total,
		passed,
		failed,
		skipped,
		duration_seconds,
		logs,
		error_message,
		coverage,
		artifacts,
		extras,
		created_at,
		started_at,
		completed_at
	)
VALUES (
	:id,
	:project_id,
	:test_case_id,
	:executor_type,
	:status,
	:total,
	:passed,
	:failed,
	:skipped,
	:duration_seconds,
	:logs,
	:error_message,
	:coverage,
	:artifacts,
	:extras,
	:created_at,
	:started_at,
	:completed_at
)
`

const selectColumns = `
	id,
	project_id,
	test_case_id,
	executor_type,
	status,
	total,
	passed,
	failed,
	skipped,
	duration_seconds,
	logs,
	error_message,
	coverage,
	artifacts,
	extras,
	created_at,
	started_at,
	completed_at
`

const selectQuery = `
SELECT` + selectColumns + `
FROM
	test_executions
WHERE
	id = ?
`

const selectByProjectQuery = `
SELECT` + selectColumns + `
FROM
	test_executions
WHERE
	project_id = ?
ORDER BY
	created_at DESC
LIMIT ? OFFSET ?
`

const markRunningQuery = `
UPDATE
	test_executions
SET
	status = 'running',
	started_at = ?
WHERE
	id = ?
	AND status = 'pending'
`

const finishQuery = `
UPDATE
	test_executions
SET
	status = :status,
	total = :total,
	passed = :passed,
	failed = :failed,
	skipped = :skipped,
	duration_seconds = :duration_seconds,
	logs = :logs,
	error_message = :error_message,
	coverage = :coverage,
	artifacts = :artifacts,
	extras = :extras,
	completed_at = :completed_at
WHERE
	id = :id
	AND status IN ('pending', 'running')
`
