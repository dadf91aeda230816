// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"database/sql"
	"embed"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

func gooseDialect(d Dialect) (string, string) {
	if d == DialectPostgres {
		return "postgres", "migrations/postgres"
	}
	return "sqlite3", "migrations/sqlite"
}

func withGoose(db *sql.DB, d Dialect, fn func(db *sql.DB, dir string) error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	dialect, dir := gooseDialect(d)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	return fn(db, dir)
}

// RunMigrations runs all pending goose migrations.
func RunMigrations(db *sql.DB, d Dialect) error {
	return withGoose(db, d, func(db *sql.DB, dir string) error {
		return goose.Up(db, dir)
	})
}

// MigrateDown rolls back the last migration.
func MigrateDown(db *sql.DB, d Dialect) error {
	return withGoose(db, d, func(db *sql.DB, dir string) error {
		return goose.Down(db, dir)
	})
}

// MigrateReset rolls back all migrations.
func MigrateReset(db *sql.DB, d Dialect) error {
	return withGoose(db, d, func(db *sql.DB, dir string) error {
		return goose.Reset(db, dir)
	})
}

// MigrationVersion returns the currently applied migration version.
func MigrationVersion(db *sql.DB, d Dialect) (int64, error) {
	var version int64
	err := withGoose(db, d, func(db *sql.DB, _ string) error {
		var err error
		version, err = goose.GetDBVersion(db)
		return err
	})
	return version, err
}
