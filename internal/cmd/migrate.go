package cmd

import (
	"github.com/spf13/cobra"

	"github.com/spec-kit/product-links/internal/persistence"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			pg, err := persistence.NewPostgres(cmd.Context(), rt.cfg.Postgres, rt.logger)
			if err != nil {
				return err
			}
			defer pg.Close()

			return persistence.RunMigrations(cmd.Context(), pg.PoolHandle(), rt.logger, command)
		},
	}
}
