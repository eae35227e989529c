package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/99minutos/tracking-service/internal/api/middleware"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Username string
	Role     string
	TTL      time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed admin token for the HTTP admin routes",
		Long: `Sign a JWT with JWT_SECRET that grants access to POST /v1/sweeps and
GET /v1/providers.

Example:
  trackingd token --username ops --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Config.AdminEnabled() {
				return errors.New("JWT_SECRET is not set")
			}
			signed, err := middleware.IssueToken(opts.Config.JWTSecret, opts.Username, opts.Role, opts.TTL)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), signed)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "ops", "token subject")
	cmd.Flags().StringVar(&opts.Role, "role", "admin", "role claim")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
