package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 0002_contest_organizer.up.sql
var addOrganizerSQL string

//go:embed 0002_contest_organizer.down.sql
var dropOrganizerSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, addOrganizerSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, dropOrganizerSQL)
			return err
		},
	)
}
