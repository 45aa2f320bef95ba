package projects

import (
	"context"

	"github.com/qtforge/cortex/pkg/core"
	errs "github.com/qtforge/cortex/pkg/errors"
	"github.com/qtforge/cortex/pkg/lumber"

	"github.com/jmoiron/sqlx"
)

type projectStore struct {
	db     core.DB
	logger lumber.Logger
}

// New returns a new ProjectStore.
func New(db core.DB, logger lumber.Logger) core.ProjectStore {
	return &projectStore{db: db, logger: logger}
}

func (p *projectStore) Create(ctx context.Context, project *core.Project) error {
	return p.db.Execute(func(db *sqlx.DB) error {
		if _, err := db.NamedExecContext(ctx, insertQuery, project); err != nil {
			return errs.SQLError(err)
		}
		return nil
	})
}

func (p *projectStore) Find(ctx context.Context, projectID string) (*core.Project, error) {
	project := &core.Project{}
	return project, p.db.Execute(func(db *sqlx.DB) error {
		row := db.QueryRowxContext(ctx, selectQuery, projectID)
		if err := row.StructScan(project); err != nil {
			return errs.SQLError(err)
		}
		return nil
	})
}

func (p *projectStore) FindByName(ctx context.Context, name string) (*core.Project, error) {
	project := &core.Project{}
	return project, p.db.Execute(func(db *sqlx.DB) error {
		row := db.QueryRowxContext(ctx, selectByNameQuery, name)
		if err := row.StructScan(project); err != nil {
			return errs.SQLError(err)
		}
		return nil
	})
}

func (p *projectStore) List(ctx context.Context, offset, limit int) ([]*core.Project, error) {
	projects := make([]*core.Project, 0)
	return projects, p.db.Execute(func(db *sqlx.DB) error {
		rows, err := db.QueryxContext(ctx, listQuery, limit, offset)
		if err != nil {
			return errs.SQLError(err)
		}
		defer rows.Close()
		for rows.Next() {
			project := new(core.Project)
			if err := rows.StructScan(project); err != nil {
				return errs.SQLError(err)
			}
			projects = append(projects, project)
		}
		if rows.Err() != nil {
			return rows.Err()
		}
		if len(projects) == 0 {
			return errs.ErrRowsNotFound
		}
		return nil
	})
}

func (p *projectStore) Update(ctx context.Context, project *core.Project) error {
	return p.db.Execute(func(db *sqlx.DB) error {
		res, err := db.NamedExecContext(ctx, updateQuery, project)
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

func (p *projectStore) Delete(ctx context.Context, projectID string) error {
	return p.db.Execute(func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, deleteQuery, projectID)
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
	projects(
		id,
		name,
		kind,
		language,
		framework,
		source_path,
		build_path,
		binary_path,
		created_at,
		updated_at
	)
VALUES (
	:id,
	:name,
	:kind,
	:language,
	:framework,
	:source_path,
	:build_path,
	:binary_path,
	:created_at,
	:updated_at
)
`

const selectQuery = `
SELECT
	id,
	name,
	kind,
	language,
	framework,
	source_path,
	build_path,
	binary_path,
	created_at,
	updated_at
FROM
	projects
WHERE
	id = ?
`

const selectByNameQuery = `
SELECT
	id,
	name,
	kind,
	language,
	framework,
	source_path,
	build_path,
	binary_path,
	created_at,
	updated_at
FROM
	projects
WHERE
	name = ?
`

const listQuery = `
SELECT
	id,
	name,
	kind,
	language,
	framework,
	source_path,
	build_path,
	binary_path,
	created_at,
	updated_at
FROM
	projects
ORDER BY
	created_at
LIMIT ? OFFSET ?
`

const updateQuery = `
UPDATE
	projects
SET
	name = :name,
	kind = :kind,
	framework = :framework,
	build_path = :build_path,
	binary_path = :binary_path,
	updated_at = :updated_at
WHERE
	id = :id
`

const deleteQuery = `
DELETE
FROM
	projects
WHERE
	id = ?
`
