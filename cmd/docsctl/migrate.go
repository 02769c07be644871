package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"smartdocs/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the vector extension, tables and search function",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, l, err := bootstrap("migrate")
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()

		gormDB, err := db.NewPostgres(cfg.DatabaseDSN, l)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		if err := db.Migrate(gormDB); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		l.Info("migrations completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
