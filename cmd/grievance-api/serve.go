package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bhoomash/publicwayservice-sub000/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with background workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		a.Start(ctx)
		return a.Serve(ctx)
	})
}
