package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reeldesk/internal/auth"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}
	tokenCmd.AddCommand(newTokenIssueCommand(ctx))
	return tokenCmd
}

func newTokenIssueCommand(ctx *commandContext) *cobra.Command {
	var (
		userID string
		role   string
		name   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token for the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			parsed, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			identity := auth.Identity{
				UserID: strings.TrimSpace(userID),
				Role:   parsed,
				Name:   strings.TrimSpace(name),
			}
			token, expires, err := auth.NewIssuer(cfg.Auth).Issue(identity, ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Local().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id the token is issued to")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleCustomer), "Role: customer or staff")
	cmd.Flags().StringVar(&name, "name", "", "Display name carried in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default from auth.token_ttl_hours)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
