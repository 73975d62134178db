package main

import (
	"context"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/storage/database"
)

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if err := cli.migrateFunc(ctx, args[0], args[1:]...); err != nil {
		return err
	}
	cli.success("migrate %s: done", args[0])
	return nil
}

// runGoose applies a goose command to the configured postgres database.
func runGoose(conf *core.Config) func(ctx context.Context, command string, args ...string) error {
	return func(ctx context.Context, command string, args ...string) error {
		db, err := database.Open(conf)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return database.RunMigration(ctx, db, command, args...)
	}
}
