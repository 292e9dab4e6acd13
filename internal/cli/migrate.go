package cli

import (
	"context"
	"fmt"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/config"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/infra/postgres"
	pgmigrations "github.com/NikitaKuzlyaev/GridArena-sub000/internal/infra/postgres/migrations"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/logger"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath, rollback)
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the last migration group")
	return cmd
}

func runMigrations(ctx context.Context, configPath string, rollback bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	db := postgres.Open(cfg.Postgres.URL)
	defer db.Close()

	if rollback {
		migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
		group, err := migrator.Rollback(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations rolled back", zap.Stringer("group", group))
		return nil
	}
	return migrateDB(ctx, db, log)
}

func migrateDB(ctx context.Context, db *bun.DB, log *zap.Logger) error {
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Info("no new migrations")
		return nil
	}
	log.Info("migrations applied", zap.Stringer("group", group))
	return nil
}
