package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewLookupCommand creates the lookup command.
func NewLookupCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <tracking-code>",
		Short: "Reconcile one tracking code and print the stored record",
		Long: `Fetch the carrier state of one tracking code, store it and print the
stored record as JSON. No notification is published.

Example:
  trackingd lookup AB123456789BR`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.Config, opts.Log)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			rec, err := a.service.ReconcileOne(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, rec)
		},
	}
}
