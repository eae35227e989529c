package cli

import (
	"github.com/spf13/cobra"

	"github.com/99minutos/tracking-service/internal/infrastructure/kafka"
)

// ConsumeOptions holds flags for the consume command.
type ConsumeOptions struct {
	*RootOptions
	GroupID string
}

// NewConsumeCommand creates the consume command.
func NewConsumeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConsumeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Log every tracking update published on KAFKA_TOPIC",
		Long: `Join a consumer group on KAFKA_TOPIC and log each tracking update until
interrupted. Useful to watch notifications while debugging.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := kafka.Config{Brokers: opts.Config.Kafka.Brokers, Topic: opts.Config.Kafka.Topic}
			c := kafka.NewConsumer(kafka.NewReader(cfg, opts.GroupID), kafka.LogHandler(opts.Log), opts.Log)
			defer func() {
				if err := c.Close(); err != nil {
					opts.Log.Error().Err(err).Msg("closing kafka reader")
				}
			}()

			opts.Log.Info().
				Strs("brokers", cfg.Brokers).
				Str("topic", cfg.Topic).
				Str("group_id", opts.GroupID).
				Msg("consumer started")

			return c.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&opts.GroupID, "group", "tracking-debug-consumer", "consumer group id")

	return cmd
}
