// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"codeberg.org/queit/queit/internal/config"
	"codeberg.org/queit/queit/internal/database"
	"codeberg.org/queit/queit/internal/server"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:   "queit",
		Usage:  "Serve pages behind secure, short-lived navigation URLs",
		Flags:  config.Flags(),
		Action: server.Run,
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Inspect or roll back the database schema",
				Commands: []*cli.Command{
					{
						Name:   "version",
						Usage:  "Print the current schema version",
						Action: migrateVersion,
					},
					{
						Name:   "down",
						Usage:  "Roll back the last migration",
						Action: migrateDown,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrateVersion(_ context.Context, cmd *cli.Command) error {
	db, err := database.Connect(cmd.String("database-dsn"))
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := database.SchemaVersion(db.DB)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, version)
	return err
}

func migrateDown(ctx context.Context, cmd *cli.Command) error {
	db, err := database.Connect(cmd.String("database-dsn"))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.MigrateDown(db.DB); err != nil {
		return fmt.Errorf("failed to roll back: %w", err)
	}
	return migrateVersion(ctx, cmd)
}
