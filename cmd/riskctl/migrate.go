package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/config"
	"github.com/thenielthevis/capstone-project-sub006/migrations"
	pgutil "github.com/thenielthevis/capstone-project-sub006/pkg/postgres"
)

// migrateCmd groups schema migration subcommands.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long:  "Apply, roll back or inspect the embedded schema migrations against DATABASE_URL.",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := pgutil.RunMigrations(databaseURL(), migrations.FS); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := pgutil.RunMigrationsDown(databaseURL(), migrations.FS); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		version, dirty, err := pgutil.MigrationVersion(databaseURL(), migrations.FS)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d", version)
		if dirty {
			fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

func databaseURL() string {
	return config.Load().DB.URL
}
