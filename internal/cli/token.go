package cli

import (
	"fmt"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/config"
	transport "github.com/NikitaKuzlyaev/GridArena-sub000/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewTokenCmd prints a bearer token for local testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		userID int64
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token for a user id",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret not configured")
			}
			tok, err := transport.NewAuthenticator(cfg.Auth.JWTSecret).Sign(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 1, "user id to put in the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
