package testcases

import (
	"context"

	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"

	jsoniter "github.com/json-iterator/go"
	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v4/zero"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type testCaseStore struct {
	db     core.DB
	logger lumber.Logger
}

// New returns a new TestCaseStore.
func New(db core.DB, logger lumber.Logger) core.TestCaseStore {
	return &testCaseStore{db: db, logger: logger}
}

// testCaseRow carries the json-encoded columns alongside the scalar ones.
type testCaseRow struct {
	*core.TestCase
	TagsJSON zero.String `db:"tags"`
	IRJSON   zero.String `db:"test_ir"`
}

func newRow(testCase *core.TestCase) (*testCaseRow, error) {
	row := &testCaseRow{TestCase: testCase}
	if len(testCase.Tags) > 0 {
		raw, err := json.Marshal(testCase.Tags)
		if err != nil {
			return nil, errs.ErrMarshalJSON
		}
		row.TagsJSON = zero.StringFrom(string(raw))
	}
	if testCase.IR != nil {
		raw, err := json.Marshal(testCase.IR)
		if err != nil {
			return nil, errs.ErrMarshalJSON
		}
		row.IRJSON = zero.StringFrom(string(raw))
	}
	return row, nil
}

func (r *testCaseRow) hydrate() error {
	if r.TagsJSON.Valid {
		if err := json.Unmarshal([]byte(r.TagsJSON.String), &r.Tags); err != nil {
			return errs.ErrUnMarshalJSON
		}
	}
	if r.IRJSON.Valid {
		ir := new(core.TestIR)
		if err := json.Unmarshal([]byte(r.IRJSON.String), ir); err != nil {
			return errs.ErrUnMarshalJSON
		}
		r.IR = ir
	}
	return nil
}

func (t *testCaseStore) Create(ctx context.Context, testCase *core.TestCase) error {
	row, err := newRow(testCase)
	if err != nil {
		return err
	}
	return t.db.Execute(func(db *sqlx.DB) error {
		if _, err := db.NamedExecContext(ctx, insertQuery, row); err != nil {
			return errs.SQLError(err)
		}
		return nil
	})
}

func (t *testCaseStore) Find(ctx context.Context, testCaseID string) (*core.TestCase, error) {
	row := &testCaseRow{TestCase: &core.TestCase{}}
	return row.TestCase, t.db.Execute(func(db *sqlx.DB) error {
		r := db.QueryRowxContext(ctx, selectQuery, testCaseID)
		if err := r.StructScan(row); err != nil {
			return errs.SQLError(err)
		}
		return row.hydrate()
	})
}

func (t *testCaseStore) FindByIDs(ctx context.Context, testCaseIDs []string) ([]*core.TestCase, error) {
	found := make(map[string]*core.TestCase, len(testCaseIDs))
	err := t.db.Execute(func(db *sqlx.DB) error {
		query, args, err := sqlx.In(selectByIDsQuery, testCaseIDs)
		if err != nil {
			return err
		}
		rows, err := db.QueryxContext(ctx, db.Rebind(query), args...)
		if err != nil {
			return errs.SQLError(err)
		}
		defer rows.Close()
		for rows.Next() {
			row := &testCaseRow{TestCase: &core.TestCase{}}
			if err := rows.StructScan(row); err != nil {
				return errs.SQLError(err)
			}
			if err := row.hydrate(); err != nil {
				return err
			}
			found[row.ID] = row.TestCase
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	// preserve the caller's ordering, callers run cases in request order
	testCases := make([]*core.TestCase, 0, len(testCaseIDs))
	for _, id := range testCaseIDs {
		if testCase, ok := found[id]; ok {
			testCases = append(testCases, testCase)
		}
	}
	if len(testCases) == 0 {
		return nil, errs.ErrRowsNotFound
	}
	return testCases, nil
}

func (t *testCaseStore) FindByProject(ctx context.Context, projectID string, offset, limit int) ([]*core.TestCase, error) {
	testCases := make([]*core.TestCase, 0)
	return testCases, t.db.Execute(func(db *sqlx.DB) error {
		rows, err := db.QueryxContext(ctx, selectByProjectQuery, projectID, limit, offset)
		if err != nil {
			return errs.SQLError(err)
		}
		defer rows.Close()
		for rows.Next() {
			row := &testCaseRow{TestCase: &core.TestCase{}}
			if err := rows.StructScan(row); err != nil {
				return errs.SQLError(err)
			}
			if err := row.hydrate(); err != nil {
				return err
			}
			testCases = append(testCases, row.TestCase)
		}
		if rows.Err() != nil {
			return rows.Err()
		}
		if len(testCases) == 0 {
			return errs.ErrRowsNotFound
		}
		return nil
	})
}

func (t *testCaseStore) Update(ctx context.Context, testCase *core.TestCase) error {
	row, err := newRow(testCase)
	if err != nil {
		return err
	}
	return t.db.Execute(func(db *sqlx.DB) error {
		res, err := db.NamedExecContext(ctx, updateQuery, row)
		if err != nil {
			return errs.SQLError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return errs.ErrRowsNotFound
		}
		return nil
	})
}

func (t *testCaseStore) Delete(ctx context.Context, testCaseID string) error {
	return t.db.Execute(func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, deleteQuery, testCaseID)
		if err != nil {
			return errs.SQLError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return errs.ErrRowsNotFound
		}
		return nil
	})
}

const insertQuery = `
INSERT
	INTO
	test_cases(
		id,
		project_id,
		name,
		description,
		kind,
		priority,
		tags,
		test_ir,
		created_at,
		updated_at
	)
VALUES (
	:id,
	:project_id,
	:name,
	:description,
	:kind,
	:priority,
	:tags,
	:test_ir,
	:created_at,
	:updated_at
)
`

const selectColumns = `
	id,
	project_id,
	name,
	description,
	kind,
	priority,
	tags,
	test_ir,
	created_at,
	updated_at
`

const selectQuery = `
SELECT` + selectColumns + `
FROM
	test_cases
WHERE
	id = ?
`

const selectByIDsQuery = `
SELECT` + selectColumns + `
FROM
	test_cases
WHERE
	id IN (?)
`

const selectByProjectQuery = `
SELECT` + selectColumns + `
FROM
	test_cases
WHERE
	project_id = ?
ORDER BY
	created_at
LIMIT ? OFFSET ?
`

const updateQuery = `
UPDATE
	test_cases
SET
	name = :name,
	description = :description,
	priority = :priority,
	tags = :tags,
	test_ir = :test_ir,
	updated_at = :updated_at
WHERE
	id = :id
`

const deleteQuery = `
DELETE
FROM
	test_cases
WHERE
	id = ?
`
