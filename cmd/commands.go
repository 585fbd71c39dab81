package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cloudpico-forecast/internal/app"
	"cloudpico-forecast/internal/config"
	"cloudpico-forecast/internal/db"
	"cloudpico-forecast/internal/logging"
	"cloudpico-forecast/internal/migrate"
	"cloudpico-forecast/internal/modules/weather/client"
	"cloudpico-forecast/internal/modules/weather/service"
	"cloudpico-forecast/internal/modules/weather/types"
)

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "Current weather and forecasts from OpenWeatherMap",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv(envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, stdout)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read (ignored when missing)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, stdout)
		},
	}

	var compact bool
	currentCmd := &cobra.Command{
		Use:   "current <city>",
		Short: "Print the current weather for a city as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, types.KindCurrent, args[0], compact, stdout, stderr)
		},
	}
	currentCmd.Flags().BoolVar(&compact, "compact", false, "print JSON on a single line")

	forecastCmd := &cobra.Command{
		Use:   "forecast <city>",
		Short: "Print the 5 day forecast for a city as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, types.KindForecast, args[0], compact, stdout, stderr)
		},
	}
	forecastCmd.Flags().BoolVar(&compact, "compact", false, "print JSON on a single line")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(stderr)
		},
	}

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the weather tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(stderr)
			if err != nil {
				return err
			}
			return app.RunMCP(cmd.Context(), cfg, logger, version, stdin, stdout)
		},
	}

	rootCmd.AddCommand(serveCmd, currentCmd, forecastCmd, migrateCmd, mcpCmd)
	return rootCmd
}

// setup loads the configuration and installs a logger writing to w.
func setup(w io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config error: %w", err)
	}
	logger := logging.New(w, cfg, version, appName)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, stdout io.Writer) error {
	cfg, logger, err := setup(stdout)
	if err != nil {
		return err
	}
	logger.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)
	if err := app.Run(cmd.Context(), cfg, logger); err != nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}

func runFetch(cmd *cobra.Command, kind types.Kind, city string, compact bool, stdout, stderr io.Writer) error {
	cfg, logger, err := setup(stderr)
	if err != nil {
		return err
	}
	if err := cfg.RequireWeatherAPIKey(); err != nil {
		return err
	}

	svc := service.NewService(client.New(cfg.WeatherClientConfig(), client.WithLogger(logger)), nil, nil, logger)

	var resp types.Response
	switch kind {
	case types.KindForecast:
		resp, err = svc.Forecast(cmd.Context(), city)
	default:
		resp, err = svc.Current(cmd.Context(), city)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}

func runMigrate(stderr io.Writer) error {
	cfg, logger, err := setup(stderr)
	if err != nil {
		return err
	}
	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()
	if err := migrate.Run(dbConn); err != nil {
		return err
	}
	logger.Info("migrations up to date")
	return nil
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}
