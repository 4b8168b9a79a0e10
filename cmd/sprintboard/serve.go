package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sprintboard/internal/clock"
	"github.com/smallbiznis/sprintboard/internal/config"
	"github.com/smallbiznis/sprintboard/internal/migration"
	"github.com/smallbiznis/sprintboard/internal/observability"
	"github.com/smallbiznis/sprintboard/internal/server"
	"github.com/smallbiznis/sprintboard/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	var nodeID int64

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				config.Module,
				observability.Module,
				fx.Provide(func() (*snowflake.Node, error) {
					return snowflake.NewNode(nodeID)
				}),
				db.Module,
				clock.Module,
				migration.Module,
				server.Module,
				fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
					return &fxevent.ZapLogger{Logger: log.Named("fx")}
				}),
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}

	cmd.Flags().Int64Var(&nodeID, "node", 1, "snowflake node id, unique per replica")
	return cmd
}
