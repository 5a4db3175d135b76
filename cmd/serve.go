package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/studentdesk/frontdesk/api"
	"github.com/studentdesk/frontdesk/api/handlers"
	"github.com/studentdesk/frontdesk/db"
	"github.com/studentdesk/frontdesk/internal/auth"
	"github.com/studentdesk/frontdesk/internal/dashboard"
	"github.com/studentdesk/frontdesk/internal/deskapi"
	"github.com/studentdesk/frontdesk/internal/sessions"
	"github.com/studentdesk/frontdesk/internal/studentsync"
	"github.com/studentdesk/frontdesk/models"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web front end",
	Run: func(cmd *cobra.Command, args []string) {

		// Set up logging and load the config
		commonSetUp(cmd)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, closeStore := newSessionStore()
		defer closeStore()

		// Initialize event publisher
		notifier := newNotifier()
		if notifier != nil {
			defer notifier.Close()
		}

		client := deskapi.NewClient(appCfg.API.BaseURL, appCfg.API.Timeout)
		logger := log.Logger

		registry := dashboard.NewRegistry(ctx, func(session models.Session) *studentsync.Engine {
			return studentsync.New(client, session, studentsync.Options{
				Interval: appCfg.Sync.Interval,
				Staff:    appCfg.Staff,
				Notifier: notifier,
				Logger:   &logger,
			})
		}, appCfg.Sync.IdleTimeout, &logger)
		go registry.Run(ctx)

		fe := &handlers.Frontend{
			Auth:     auth.NewFlows(client),
			Sessions: store,
			Views:    registry,
			Cookie:   appCfg.Cookie,
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           api.NewRouter(fe),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("could not shut down server")
			}
		}()

		log.Info().Str("api", appCfg.API.BaseURL).Msg(fmt.Sprintf("Server started at %s:%d", host, port))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("could not start server")
		}
		registry.StopAll()
		log.Info().Msg("Server stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to run the server on")
	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the server on")
}

// newSessionStore returns the configured session store and its close function.
func newSessionStore() (sessions.Store, func()) {
	switch appCfg.Sessions.Driver {
	case "postgres":
		logger := log.Logger
		sessionDB, err := db.NewSessionDB(appCfg.Sessions.Source, &logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize session database")
		}
		return sessionDB, func() { _ = sessionDB.Close() }
	case "memory", "":
		return sessions.NewMemoryStore(), func() {}
	default:
		log.Fatal().Str("driver", appCfg.Sessions.Driver).Msg("unknown session driver")
		return nil, nil
	}
}
