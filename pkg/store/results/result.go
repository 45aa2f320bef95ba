package results

import (
	"context"
	"fmt"
	"strings"

	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"
	"github.com/qtforge/cortex/pkg/utils"

	"github.com/gocraft/dbr"
	"github.com/gocraft/dbr/dialect"
	jsoniter "github.com/json-iterator/go"
	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v4/zero"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const insertQueryChunkSize = 1000

type resultStore struct {
	db     core.DB
	logger lumber.Logger
}

// New returns a new ResultStore.
func New(db core.DB, logger lumber.Logger) core.ResultStore {
	return &resultStore{db: db, logger: logger}
}

func marshalColumns(result *core.TestResult) (coverage, assertions zero.String, err error) {
	if result.Coverage != nil {
		raw, merr := json.Marshal(result.Coverage)
		if merr != nil {
			return coverage, assertions, errs.ErrMarshalJSON
		}
		coverage = zero.StringFrom(string(raw))
	}
	if len(result.Assertions) > 0 {
		raw, merr := json.Marshal(result.Assertions)
		if merr != nil {
			return coverage, assertions, errs.ErrMarshalJSON
		}
		assertions = zero.StringFrom(string(raw))
	}
	return coverage, assertions, nil
}

func (r *resultStore) Create(ctx context.Context, results ...*core.TestResult) error {
	return r.db.Execute(func(db *sqlx.DB) error {
		return r.bulkInsert(ctx, results, func(query string) error {
			_, err := db.ExecContext(ctx, query)
			return err
		})
	})
}

func (r *resultStore) bulkInsert(ctx context.Context, results []*core.TestResult, exec func(query string) error) error {
	return utils.Chunk(insertQueryChunkSize, len(results), func(start, end int) error {
		args := []interface{}{}
		placeholderGrps := []string{}
		for _, result := range results[start:end] {
			coverage, assertions, err := marshalColumns(result)
			if err != nil {
				return err
			}
			placeholderGrps = append(placeholderGrps, "(?,?,?,?,?,?,?,?,?,?,?,?,?)")
			args = append(args, result.ID, result.ExecutionID, result.TestCaseID, result.Name,
				result.Outcome, result.DurationSeconds, result.ErrorMessage, result.LogPath,
				result.ScreenshotPath, coverage, assertions, result.NeedsReview, result.Created)
		}
		interpolatedQuery, errI := dbr.InterpolateForDialect(fmt.Sprintf(insertQuery, strings.Join(placeholderGrps, ",")), args, dialect.MySQL)
		if errI != nil {
			return errs.SQLError(errI)
		}
		if err := exec(interpolatedQuery); err != nil {
			return errs.SQLError(err)
		}
		return nil
	})
}

func (r *resultStore) FindByExecution(ctx context.Context, executionID string) ([]*core.TestResult, error) {
	results := make([]*core.TestResult, 0)
	return results, r.db.Execute(func(db *sqlx.DB) error {
		rows, err := db.QueryxContext(ctx, selectByExecutionQuery, executionID)
		if err != nil {
			return errs.SQLError(err)
		}
		defer rows.Close()
		for rows.Next() {
			result := new(core.TestResult)
			var coverage, assertions zero.String
			if err := rows.Scan(&result.ID, &result.ExecutionID, &result.TestCaseID,
				&result.Name, &result.Outcome, &result.DurationSeconds, &result.ErrorMessage,
				&result.LogPath, &result.ScreenshotPath, &coverage, &assertions,
				&result.NeedsReview, &result.Created); err != nil {
				return errs.SQLError(err)
			}
			if coverage.Valid {
				summary := new(core.CoverageSummary)
				if err := json.Unmarshal([]byte(coverage.String), summary); err != nil {
					return errs.ErrUnMarshalJSON
				}
				result.Coverage = summary
			}
			if assertions.Valid {
				if err := json.Unmarshal([]byte(assertions.String), &result.Assertions); err != nil {
					return errs.ErrUnMarshalJSON
				}
			}
			results = append(results, result)
		}
		if rows.Err() != nil {
			return rows.Err()
		}
		if len(results) == 0 {
			return errs.ErrRowsNotFound
		}
		return nil
	})
}

const insertQuery = `
INSERT
	INTO
	test_results(
		id,
		execution_id,
		test_case_id,
		name,
		outcome,
		duration_seconds,
		error_message,
		log_path,
		screenshot_path,
		coverage,
		assertions,
		needs_review,
		created_at
	)
VALUES %s
`

const selectByExecutionQuery = `
SELECT
	id,
	execution_id,
	test_case_id,
	name,
	outcome,
	duration_seconds,
	error_message,
	log_path,
	screenshot_path,
	coverage,
	assertions,
	needs_review,
	created_at
FROM
	test_results
WHERE
	execution_id = ?
ORDER BY
	created_at
`
