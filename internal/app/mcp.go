package app

import (
	"context"
	"io"
	"log/slog"

	"cloudpico-forecast/internal/config"
	"cloudpico-forecast/internal/db"
	"cloudpico-forecast/internal/mcptools"
	"cloudpico-forecast/internal/migrate"
	"cloudpico-forecast/internal/modules/weather/client"
	"cloudpico-forecast/internal/modules/weather/repository"
	"cloudpico-forecast/internal/modules/weather/service"
)

// RunMCP serves the weather tools over MCP on in/out. Lookups are recorded
// and published exactly as they are for the HTTP API.
func RunMCP(ctx context.Context, cfg config.Config, logger *slog.Logger, version string, in io.Reader, out io.Writer) error {
	if err := cfg.RequireWeatherAPIKey(); err != nil {
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

	publisher, stopPublisher := ConnectPublisher(ctx, cfg, logger)
	defer stopPublisher()

	svc := service.NewService(
		client.New(cfg.WeatherClientConfig(), client.WithLogger(logger)),
		repository.NewRepository(dbConn),
		publisher,
		logger,
	)

	s, err := mcptools.NewServer(version, svc)
	if err != nil {
		return err
	}
	return mcptools.Serve(ctx, s, in, out, logger)
}
