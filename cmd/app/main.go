// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"codeberg.org/collegeblog/backend/internal/config"
	"codeberg.org/collegeblog/backend/internal/database"
	"codeberg.org/collegeblog/backend/internal/server"
	"github.com/urfave/cli/v3"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cmd := &cli.Command{
		Name:    "collegeblog",
		Usage:   "College blog API server",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags:   config.Flags(),
		Action:  server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the API server",
				Action: server.Run,
			},
			migrateCommand(),
			usersCommand(),
			pruneTokensCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage database migrations",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: withDatabase(func(db *sql.DB, dialect database.Dialect) error {
					return database.RunMigrations(db, dialect)
				}),
			},
			{
				Name:  "down",
				Usage: "Roll back the last migration",
				Action: withDatabase(func(db *sql.DB, dialect database.Dialect) error {
					return database.MigrateDown(db, dialect)
				}),
			},
			{
				Name:  "reset",
				Usage: "Roll back all migrations",
				Action: withDatabase(func(db *sql.DB, dialect database.Dialect) error {
					return database.MigrateReset(db, dialect)
				}),
			},
			{
				Name:  "status",
				Usage: "Print the applied migration version",
				Action: withDatabase(func(db *sql.DB, dialect database.Dialect) error {
					version, err := database.MigrationVersion(db, dialect)
					if err != nil {
						return err
					}
					fmt.Printf("database version: %d\n", version)
					return nil
				}),
			},
		},
	}
}

func withDatabase(fn func(*sql.DB, database.Dialect) error) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		cfg := config.NewFromCLI(cmd)
		conn, dialect, err := database.Connect(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = database.Close(conn) }()

		return fn(conn.DB, dialect)
	}
}
