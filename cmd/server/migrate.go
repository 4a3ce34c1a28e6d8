package main

import (
	"context"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iliyamo/bearer-auth-api/internal/config"
	"github.com/iliyamo/bearer-auth-api/internal/database"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending migrations (users, jwt_denylist) to the MySQL database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, config.Load())
		},
	}
}

func runMigrate(cmd *cobra.Command, cfg config.Config) error {
	if strings.TrimSpace(cfg.DBName) == "" || strings.TrimSpace(cfg.DBUser) == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DB_USER and DB_NAME are required")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.Println("Connecting to database...")
	cfg.AutoMigrate = false
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	cmd.Println("Running migrations...")
	if err := database.Migrate(ctx, db); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
