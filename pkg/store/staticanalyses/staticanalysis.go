package staticanalyses

import (
	"context"

	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"

	"github.com/jmoiron/sqlx"
)

type staticAnalysisStore struct {
	db     core.DB
	logger lumber.Logger
}

// New returns a new StaticAnalysisStore.
func New(db core.DB, logger lumber.Logger) core.StaticAnalysisStore {
	return &staticAnalysisStore{db: db, logger: logger}
}

func (s *staticAnalysisStore) Create(ctx context.Context, analysis *core.StaticAnalysis) error {
	return s.db.Execute(func(db *sqlx.DB) error {
		if _, err := db.NamedExecContext(ctx, insertQuery, analysis); err != nil {
			return errs.SQLError(err)
		}
		return nil
	})
}

func (s *staticAnalysisStore) FindByProject(ctx context.Context, projectID string, offset, limit int) ([]*core.StaticAnalysis, error) {
	analyses := make([]*core.StaticAnalysis, 0)
	return analyses, s.db.Execute(func(db *sqlx.DB) error {
		rows, err := db.QueryxContext(ctx, selectByProjectQuery, projectID, limit, offset)
		if err != nil {
			return errs.SQLError(err)
		}
		defer rows.Close()
		for rows.Next() {
			analysis := new(core.StaticAnalysis)
			if err := rows.StructScan(analysis); err != nil {
				return errs.SQLError(err)
			}
			analyses = append(analyses, analysis)
		}
		if rows.Err() != nil {
			return rows.Err()
		}
		if len(analyses) == 0 {
			return errs.ErrRowsNotFound
		}
		return nil
	})
}

const insertQuery = `
INSERT
	INTO
	static_analyses(
		id,
		project_id,
		tool,
		run_timestamp,
		results_path,
		total_issues,
		error_count,
		warning_count,
		style_count,
		created_at
	)
VALUES (
	:id,
	:project_id,
	:tool,
	:run_timestamp,
	:results_path,
	:total_issues,
	:error_count,
	:warning_count,
	:style_count,
	:created_at
)
`

const selectByProjectQuery = `
SELECT
	id,
	project_id,
	tool,
	run_timestamp,
	results_path,
	total_issues,
	error_count,
	warning_count,
	style_count,
	created_at
FROM
	static_analyses
WHERE
	project_id = ?
ORDER BY
	created_at DESC
LIMIT ? OFFSET ?
`
