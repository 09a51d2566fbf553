package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/tasktrail/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		secret string
		issuer string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a development bearer token",
		Long: "Signs an HS256 token whose subject is <user-id> with the server's " +
			"JWT_SECRET_KEY. Intended for local development and testing.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET_KEY")
			}
			if secret == "" {
				return fmt.Errorf("signing key required: set --secret or JWT_SECRET_KEY")
			}

			token, err := auth.NewIssuer([]byte(secret), issuer).Issue(args[0], ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Signing key (env: JWT_SECRET_KEY)")
	cmd.Flags().StringVar(&issuer, "issuer", "tasktrail", "Issuer claim; must match the server's JWT_ISSUER")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "Token lifetime")
	return cmd
}
