package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
)

// NewSweepCommand creates the sweep command.
func NewSweepCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one sweep over pending records and exit",
		Long: `Reconcile every tracking record that has no delivered event, publish a
notification for each status change and print the sweep report as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.Config, opts.Log)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			report, err := a.service.ReconcilePending(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, report)
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
