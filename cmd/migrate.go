package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/studentdesk/frontdesk/db"
)

var migrateCmd = &cobra.Command{
	Use:   "init-db-migrate",
	Short: "Run the session database migrations",
	Long:  `This job creates the session tables by running the embedded goose migrations.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging and load the config
		commonSetUp(cmd)

		if appCfg.Sessions.Driver != "postgres" {
			log.Fatal().Str("driver", appCfg.Sessions.Driver).Msg("migrations need the postgres session driver")
		}

		logger := log.Logger
		sessionDB, err := db.NewSessionDB(appCfg.Sessions.Source, &logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize session database")
		}
		defer sessionDB.Close()

		// Run the migrations
		log.Info().Msgf("Running migrations...")
		if err := sessionDB.Migrate(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}

		log.Info().Msg("Migrations complete")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
