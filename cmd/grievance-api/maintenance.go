package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bhoomash/publicwayservice-sub000/internal/app"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed every complaint, e.g. after changing the embedding model",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Maintenance.Reindex(ctx)
			if err != nil {
				return err
			}
			a.Logger.Info("reindex complete", zap.Int("indexed", n))
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d complaints\n", n)
			return nil
		})
	},
}

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Raise priority of pending complaints that have aged",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			report, err := a.Maintenance.Rescore(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, updated %d\n", report.Scanned, report.Updated)
			return nil
		})
	},
}
