package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloudpico-forecast/internal/config"
	"cloudpico-forecast/internal/db"
	"cloudpico-forecast/internal/httpapi"
	"cloudpico-forecast/internal/migrate"
	weather "cloudpico-forecast/internal/modules/weather"
	"cloudpico-forecast/internal/modules/weather/client"
	"cloudpico-forecast/internal/modules/weather/service"
	"cloudpico-forecast/internal/mqtt"
)

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// Run serves the HTTP API until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.RequireWeatherAPIKey(); err != nil {
		return err
	}

	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"weatherBaseURL", cfg.WeatherBaseURL,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopicPrefix", cfg.MQTTTopicPrefix,
	)

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
	logger.Info("database ready")

	publisher, stopPublisher := ConnectPublisher(ctx, cfg, logger)
	defer stopPublisher()

	weatherClient := client.New(cfg.WeatherClientConfig(), client.WithLogger(logger))

	mux := httpapi.NewMux(dbConn)
	weather.RegisterFeature(mux, dbConn, weatherClient, publisher, logger)

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// ConnectPublisher returns a connected MQTT publisher, or nil when MQTT is
// disabled. A broker that cannot be reached within mqttConnectTimeout is
// logged and left to reconnect in the background. The returned func
// disconnects the publisher and is always safe to call.
func ConnectPublisher(ctx context.Context, cfg config.Config, logger *slog.Logger) (service.Publisher, func()) {
	if !cfg.MQTTEnabled() {
		logger.Info("mqtt disabled (MQTT_BROKER not set)")
		return nil, func() {}
	}

	p := mqtt.NewPublisher(cfg, logger)

	connectCtx, connectCancel := context.WithTimeout(ctx, mqttConnectTimeout)
	err := p.Connect(connectCtx)
	connectCancel()
	if err != nil {
		logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
	}

	return p, p.Disconnect
}
