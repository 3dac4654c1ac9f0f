package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"canvasquest/internal/database"
)

var errNoDatabase = errors.New("no database connection")

func newMigrateCmd(connect connector) *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, connect, func(b *backend) error {
				if b.pool == nil {
					return errNoDatabase
				}
				if err := database.Migrate(cmd.Context(), b.pool); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the state of every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, connect, func(b *backend) error {
				if b.pool == nil {
					return errNoDatabase
				}
				return database.MigrationStatus(cmd.Context(), b.pool)
			})
		},
	}

	migrate.AddCommand(up, status)
	return migrate
}
