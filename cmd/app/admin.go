// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"codeberg.org/collegeblog/backend/internal/config"
	"codeberg.org/collegeblog/backend/internal/database"
	"codeberg.org/collegeblog/backend/internal/repository"
	"github.com/urfave/cli/v3"
)

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage accounts",
		Commands: []*cli.Command{
			{
				Name:      "activate",
				Usage:     "Allow an account to log in again",
				ArgsUsage: "<email>",
				Action: withRepository(func(ctx context.Context, cmd *cli.Command, repo *repository.Repository) error {
					return setUserActive(ctx, repo, cmd.Root().Writer, cmd.Args().First(), true)
				}),
			},
			{
				Name:      "deactivate",
				Usage:     "Block an account; its bearer tokens stop working at once",
				ArgsUsage: "<email>",
				Action: withRepository(func(ctx context.Context, cmd *cli.Command, repo *repository.Repository) error {
					return setUserActive(ctx, repo, cmd.Root().Writer, cmd.Args().First(), false)
				}),
			},
		},
	}
}

func pruneTokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune-tokens",
		Usage: "Delete expired email verification tokens",
		Action: withRepository(func(ctx context.Context, cmd *cli.Command, repo *repository.Repository) error {
			return pruneTokens(ctx, repo, cmd.Root().Writer)
		}),
	}
}

func setUserActive(ctx context.Context, repo *repository.Repository, out io.Writer, address string, active bool) error {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return errors.New("email argument is required")
	}

	user, err := repo.GetUserByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("no user with email %q", address)
		}
		return err
	}
	if err := repo.SetUserActive(ctx, user.ID, active); err != nil {
		return err
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	_, _ = fmt.Fprintf(out, "user %d (%s) %s\n", user.ID, user.Email, state)
	return nil
}

func pruneTokens(ctx context.Context, repo *repository.Repository, out io.Writer) error {
	n, err := repo.DeleteExpiredEmailVerificationTokens(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "deleted %d expired verification tokens\n", n)
	return nil
}

// withRepository opens the database with migrations applied and hands a
// repository to fn.
func withRepository(fn func(context.Context, *cli.Command, *repository.Repository) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg := config.NewFromCLI(cmd)
		db, err := database.Open(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = database.Close(db) }()

		return fn(ctx, cmd, repository.New(db))
	}
}
