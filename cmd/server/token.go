package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swa/agilemetrics/internal/auth"
)

// tokenCmd issues a bearer token for AUTH_MODE=jwt
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token",
	Long: `Sign a JWT with JWT_SECRET for use as "Authorization: Bearer <token>"
or, for the dashboard and websockets, as ?token=<token>.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	subject, _ := cmd.Flags().GetString("subject")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	if cfg.Auth.Mode != "jwt" {
		logger.Warn("Issuing a token while authentication is disabled", map[string]interface{}{
			"auth_mode": cfg.Auth.Mode,
		})
	}

	token, err := auth.GenerateToken([]byte(cfg.Auth.JWTSecret), subject, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
