package db

import "github.com/jmoiron/sqlx"

// bootstrapSchema creates the tables on an empty sqlite database. The DDL is
// idempotent; mysql deployments run migrations out of band instead.
func bootstrapSchema(db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL UNIQUE,
		kind          TEXT NOT NULL,
		language      TEXT NOT NULL,
		framework     TEXT,
		source_path   TEXT NOT NULL,
		build_path    TEXT,
		binary_path   TEXT,
		created_at    TIMESTAMP NOT NULL,
		updated_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS test_cases (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name          TEXT NOT NULL,
		description   TEXT,
		kind          TEXT NOT NULL,
		priority      TEXT NOT NULL,
		tags          TEXT,
		test_ir       TEXT,
		created_at    TIMESTAMP NOT NULL,
		updated_at    TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_test_cases_project ON test_cases(project_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_test_cases_identity ON test_cases(project_id, name, kind)`,
	`CREATE TABLE IF NOT EXISTS test_executions (
		id               TEXT PRIMARY KEY,
		project_id       TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		test_case_id     TEXT,
		executor_type    TEXT NOT NULL,
		status           TEXT NOT NULL,
		total            INTEGER NOT NULL DEFAULT 0,
		passed           INTEGER NOT NULL DEFAULT 0,
		failed           INTEGER NOT NULL DEFAULT 0,
		skipped          INTEGER NOT NULL DEFAULT 0,
		duration_seconds REAL NOT NULL DEFAULT 0,
		logs             TEXT,
		error_message    TEXT,
		coverage         TEXT,
		artifacts        TEXT,
		extras           TEXT,
		created_at       TIMESTAMP NOT NULL,
		started_at       TIMESTAMP,
		completed_at     TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_test_executions_project ON test_executions(project_id)`,
	`CREATE TABLE IF NOT EXISTS test_results (
		id               TEXT PRIMARY KEY,
		execution_id     TEXT NOT NULL REFERENCES test_executions(id) ON DELETE CASCADE,
		test_case_id     TEXT,
		name             TEXT NOT NULL,
		outcome          TEXT NOT NULL,
		duration_seconds REAL NOT NULL DEFAULT 0,
		error_message    TEXT,
		log_path         TEXT,
		screenshot_path  TEXT,
		coverage         TEXT,
		assertions       TEXT,
		needs_review     INTEGER NOT NULL DEFAULT 0,
		created_at       TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_test_results_execution ON test_results(execution_id)`,
	`CREATE TABLE IF NOT EXISTS static_analyses (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		tool          TEXT NOT NULL,
		run_timestamp TEXT NOT NULL,
		results_path  TEXT NOT NULL,
		total_issues  INTEGER NOT NULL DEFAULT 0,
		error_count   INTEGER NOT NULL DEFAULT 0,
		warning_count INTEGER NOT NULL DEFAULT 0,
		style_count   INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_static_analyses_project ON static_analyses(project_id)`,
}
