package main

import (
	"fmt"
	"time"

	"github.com/smallbiznis/sprintboard/internal/authprovider"
	"github.com/smallbiznis/sprintboard/internal/config"
	"github.com/spf13/cobra"
)

// newTokenCommand signs a session token with AUTH_JWT_SECRET for local use.
func newTokenCommand() *cobra.Command {
	var (
		session authprovider.Session
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to sign tokens in production")
			}
			token, err := authprovider.NewVerifier(cfg).Issue(session, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&session.UserID, "user", "", "external user id (required)")
	cmd.Flags().StringVar(&session.OrgID, "org", "", "active organization id")
	cmd.Flags().StringVar(&session.OrgRole, "role", "member", "organization role")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
