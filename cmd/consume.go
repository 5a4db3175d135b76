package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/studentdesk/frontdesk/internal/events"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Run the Pulsar consumer and log student change events",
	Run: func(cmd *cobra.Command, args []string) {

		// Set up logging and load the config
		commonSetUp(cmd)

		if appCfg.Pulsar.URL == "" {
			log.Fatal().Msg("pulsar.url is not configured")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Initialize event consumer
		consumer, err := events.NewEventConsumer(appCfg.Pulsar.URL, appCfg.Pulsar.Topic, appCfg.Pulsar.Subscription)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event consumer")
		}
		defer consumer.Close()

		log.Info().Str("topic", appCfg.Pulsar.Topic).
			Str("dead_letter_topic", events.DeadLetterTopic(appCfg.Pulsar.Topic, appCfg.Pulsar.Subscription)).
			Msg("Waiting for messages...")
		consumer.Run(ctx, func(ctx context.Context, event events.EventPayload) error {
			log.Log().
				Str("action", event.Action).
				Str("student_id", event.StudentID).
				Str("allocated_man", event.AllocatedMan).
				Int("count", event.Count).
				Str("actor", event.Actor).
				Time("at", event.Timestamp).
				Msg("student event")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}
