package main

import (
	"github.com/spf13/cobra"

	"github.com/bhoomash/publicwayservice-sub000/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(database.DirectionUp), string(database.DirectionDown)},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := database.DirectionUp
		if len(args) == 1 {
			direction = database.Direction(args[0])
		}
		cfg, logr, err := bootstrap()
		if err != nil {
			return err
		}
		defer logr.Sync() //nolint:errcheck

		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		return database.Migrate(db, direction, logr)
	},
}
