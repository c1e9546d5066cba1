package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpattn/ckanbulk/internal/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the field cache schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.RunMigrations(a.cfg.Database); err != nil {
				return err
			}
			a.logger.Info("migrations applied", "db", a.cfg.Database.DBName)
			return nil
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Revert all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.RollbackMigrations(a.cfg.Database); err != nil {
				return err
			}
			a.logger.Info("migrations rolled back", "db", a.cfg.Database.DBName)
			return nil
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, dirty, err := db.MigrationVersion(a.cfg.Database)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
