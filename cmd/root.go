/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/studentdesk/frontdesk/internal/appconfig"
	"github.com/studentdesk/frontdesk/internal/events"
)

var (
	logLevel   string
	configPath string
	host       string
	port       int
	appCfg     *appconfig.Config
)

var rootCmd = &cobra.Command{
	Use:   "studentdesk",
	Short: "Student Desk",
	Long:  `Student Desk is the front desk for the student management API: a web front end for operators and receptionists and a matching CLI.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn",
		"sets the log level")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml",
		"path to the config file")
}

// commonSetUp sets up logging and loads the config
func commonSetUp(cmd *cobra.Command) {
	setLogging(logLevel)

	// A missing default config file falls back to defaults
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		log.Info().Str("config", configPath).Msg("config file not found, using defaults")
		appCfg = appconfig.Default()
		return
	}

	var err error
	appCfg, err = appconfig.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
}

func setLogging(level string) {
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}

// newNotifier connects the change event publisher. Events are disabled
// when no Pulsar URL is configured or the broker cannot be reached.
func newNotifier() events.Notifier {
	if appCfg.Pulsar.URL == "" {
		return nil
	}
	publisher, err := events.NewEventPublisher(appCfg.Pulsar.URL, appCfg.Pulsar.Topic)
	if err != nil {
		log.Warn().Err(err).Msg("change events disabled")
		return nil
	}
	return publisher
}
