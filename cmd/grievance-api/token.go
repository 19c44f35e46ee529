package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
	"github.com/bhoomash/publicwayservice-sub000/internal/service"
	"github.com/bhoomash/publicwayservice-sub000/pkg/config"
)

var (
	tokenUser string
	tokenRole string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a signed access token for local testing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logr, err := bootstrap()
		if err != nil {
			return err
		}
		defer logr.Sync() //nolint:errcheck
		if cfg.Env == config.EnvProduction {
			return fmt.Errorf("token minting is disabled in production")
		}
		auth := service.NewAuthService(logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			Issuer:            cfg.JWT.Issuer,
			Audience:          cfg.JWT.Audience,
		})
		token, err := auth.IssueToken(tokenUser, models.UserRole(tokenRole), tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "dev-citizen", "user id placed in the token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(models.RoleCitizen), "admin, collector or citizen")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
}
