package db

import (
	"fmt"

	"github.com/qtforge/cortex/config"
	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/lumber"

	// mysql driver
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	// sqlite driver
	_ "github.com/mattn/go-sqlite3"
)

// Connect creates a connection with the configured database. The default
// driver is an embedded sqlite file so a single-binary deployment needs no
// external server; mysql is available for shared deployments.
func Connect(cfg *config.Config, logger lumber.Logger) (core.DB, error) {
	switch cfg.DB.Driver {
	case "mysql":
		return connectMySQL(cfg, logger)
	case "", "sqlite3":
		return connectSQLite(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DB.Driver)
	}
}

func connectMySQL(cfg *config.Config, logger lumber.Logger) (core.DB, error) {
	connectionString := fmt.Sprintf("%s:%s@%s(%s:%s)/%s", cfg.DB.User, cfg.DB.Password, "tcp", cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	db, err := sqlx.Connect("mysql", connectionString+"?parseTime=true&charset=utf8mb4")
	if err != nil {
		return nil, err
	}
	logger.Infof("Database connected successfully")

	db.SetMaxIdleConns(constants.MaxIdleConnection)
	db.SetMaxOpenConns(constants.MaxOpenConnection)
	db.SetConnMaxLifetime(constants.MaxConnectionLifetime)

	return &DB{conn: db, logger: logger}, nil
}

func connectSQLite(cfg *config.Config, logger lumber.Logger) (core.DB, error) {
	path := cfg.DB.Path
	if path == "" {
		path = constants.DefaultSQLitePath
	}
	// WAL keeps the api and the worker pool from blocking each other on
	// writes; the busy timeout covers checkpoint stalls.
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on",
		path, constants.SQLiteBusyTimeout.Milliseconds())
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	logger.Infof("Database connected successfully, file: %s", path)

	if err := bootstrapSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxIdleConns(constants.MaxIdleConnection)
	db.SetMaxOpenConns(constants.MaxOpenConnection)
	db.SetConnMaxLifetime(constants.MaxConnectionLifetime)

	return &DB{conn: db, logger: logger}, nil
}
