// Command chatboteventhandler listens to IoT Racing events and wraps
// them for the demo chatbot: one subscription per demozone, one
// in-memory aggregate store per demozone, and a REST status endpoint
// on top.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/oraclespainpresales/chatboteventhandler/pkg/api"
	"github.com/oraclespainpresales/chatboteventhandler/pkg/config"
	"github.com/oraclespainpresales/chatboteventhandler/pkg/registry"
)

// Exit codes. Help exits 0 through cobra.
const (
	exitUsage     = 1 // invalid or missing arguments
	exitInterrupt = 2
	exitDirectory = 3 // setup DB lookup failed or returned no zones
	exitFatal     = 4
)

const shutdownTimeout = 10 * time.Second

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "interrupted"
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:   "chatboteventhandler",
	Short: "ChatBot helper for IoT Racing events",
	Long: `ChatBot helper that listens to IoT Racing events and provides a
wrapper for the demo for the ChatBot.

It resolves the active demozones from the setup DB, subscribes to each
zone's race, speed, lap and offtrack channels, and serves per-zone
aggregate statistics on /status/{demozone}.`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringP("dbhost", "d", "", "DB setup server address, host:port")
	rootCmd.Flags().StringP("eventserver", "s", "", "event server hostname (no port is needed)")
	rootCmd.Flags().StringP("config", "c", "", "optional YAML config file")
	rootCmd.Flags().IntP("port", "p", api.DefaultPort, "status endpoint port")
	rootCmd.Flags().BoolP("verbose", "v", false, "enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var xe *exitError
		if errors.As(err, &xe) {
			if xe.err != nil {
				log.Error().Err(xe.err).Msg("exiting")
			}
			os.Exit(xe.code)
		}
		// cobra flag errors and our own usage errors
		fmt.Fprintln(os.Stderr, err)
		_ = rootCmd.Usage()
		os.Exit(exitUsage)
	}
}

// loadConfig merges the optional config file with the flags; a flag set
// on the command line always wins.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	cfg.Port = api.DefaultPort

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}

	if cmd.Flags().Changed("dbhost") {
		cfg.DBHost, _ = cmd.Flags().GetString("dbhost")
	}
	if cmd.Flags().Changed("eventserver") {
		cfg.EventServer, _ = cmd.Flags().GetString("eventserver")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose, _ = cmd.Flags().GetBool("verbose")
	}

	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.DBHost == "" || cfg.EventServer == "" {
		return errors.New("both --dbhost and --eventserver are required")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := registry.Build(ctx, cfg.DBHost, cfg.EventServer, log.Logger)
	if err != nil {
		return &exitError{code: exitDirectory, err: err}
	}
	defer reg.Close()

	log.Info().Int("zones", len(reg.Zones())).Msg("demozones resolved")

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api.Handler(reg, log.Logger),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Msgf("REST server running on http://localhost:%d/", cfg.Port)

	select {
	case err = <-errCh:
		return &exitError{code: exitFatal, err: err}

	case <-ctx.Done():
		log.Info().Msg("caught interrupt signal")
		log.Info().Msg("exiting gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err = srv.Shutdown(shutdownCtx); err != nil {
			log.Err(err).Msg("failed to shut down cleanly")
		}

		return &exitError{code: exitInterrupt}
	}
}
