package main

import (
	"context"
	"time"

	"github.com/smallbiznis/sprintboard/internal/config"
	"github.com/smallbiznis/sprintboard/internal/migration"
	"github.com/smallbiznis/sprintboard/internal/observability"
	"github.com/smallbiznis/sprintboard/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// Migrations run while the fx graph is built; starting and stopping the app
// only flushes the logger and exporters.
func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.NopLogger,
				config.Module,
				observability.Module,
				db.Module,
				migration.Module,
			)
			if err := app.Err(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := app.Start(ctx); err != nil {
				return err
			}
			return app.Stop(ctx)
		},
	}
}
