package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	weatherclient "cloudpico-forecast/internal/modules/weather/client"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	WeatherAPIKey  string
	WeatherBaseURL string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	// SQLiteLogQueries logs every statement at debug level through db.NewLoggingConnector.
	SQLiteLogQueries bool

	// MQTTBroker empty disables publishing.
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string
}

// LoadFromEnv reads the configuration from the environment. When CONFIG_FILE
// names a TOML file its values are used for any variable that is unset.
func LoadFromEnv() (Config, error) {
	fileValues, err := loadFileValues(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
	if err != nil {
		return Config{}, err
	}
	get := func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return fileValues[key]
	}

	appEnv := get("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := get("LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := get("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	weatherAPIKey := get("WEATHER_API_KEY")
	weatherBaseURL := get("WEATHER_BASE_URL")
	if weatherBaseURL == "" {
		weatherBaseURL = weatherclient.DefaultBaseURL
	}
	if !strings.HasPrefix(weatherBaseURL, "http://") && !strings.HasPrefix(weatherBaseURL, "https://") {
		return Config{}, fmt.Errorf("invalid WEATHER_BASE_URL %q (expected http:// or https://)", weatherBaseURL)
	}

	driver := get("SQLITE_DRIVER")
	if driver == "" {
		driver = "sqlite3"
	}
	dsn := get("SQLITE_DSN")
	path := get("SQLITE_PATH")
	if path == "" {
		path = "../dev/sqlite/forecast.db"
	}

	maxOpenConnsStr := get("SQLITE_MAX_OPEN_CONNS")
	if maxOpenConnsStr == "" {
		maxOpenConnsStr = "1"
	}
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SQLITE_MAX_OPEN_CONNS %q: %w", maxOpenConnsStr, err)
	}

	maxIdleConnsStr := get("SQLITE_MAX_IDLE_CONNS")
	if maxIdleConnsStr == "" {
		maxIdleConnsStr = "1"
	}
	maxIdleConns, err := strconv.Atoi(maxIdleConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SQLITE_MAX_IDLE_CONNS %q: %w", maxIdleConnsStr, err)
	}

	connMaxLifetimeStr := get("SQLITE_CONN_MAX_LIFETIME")
	if connMaxLifetimeStr == "" {
		connMaxLifetimeStr = "0s"
	}
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SQLITE_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	logQueriesStr := get("SQLITE_LOG_QUERIES")
	if logQueriesStr == "" {
		logQueriesStr = "false"
	}
	logQueries, err := strconv.ParseBool(logQueriesStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SQLITE_LOG_QUERIES %q: %w", logQueriesStr, err)
	}

	mqttBroker := get("MQTT_BROKER")

	mqttPortStr := get("MQTT_PORT")
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("MQTT_PORT out of range: %d", mqttPort)
	}

	mqttClientID := get("MQTT_CLIENT_ID")
	if mqttClientID == "" {
		mqttClientID = "cloudpico-forecast"
	}

	mqttTopicPrefix := strings.Trim(get("MQTT_TOPIC_PREFIX"), "/")
	if mqttTopicPrefix == "" {
		mqttTopicPrefix = "cloudpico/weather"
	}

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              httpAddr,
		WeatherAPIKey:         weatherAPIKey,
		WeatherBaseURL:        weatherBaseURL,
		SQLiteDriver:          driver,
		SQLiteDSN:             dsn,
		SQLitePath:            path,
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLiteLogQueries:      logQueries,
		MQTTBroker:            mqttBroker,
		MQTTPort:              mqttPort,
		MQTTClientID:          mqttClientID,
		MQTTTopicPrefix:       mqttTopicPrefix,
	}, nil
}

// WeatherClientConfig returns the upstream API settings for weatherclient.New.
func (c Config) WeatherClientConfig() weatherclient.Config {
	return weatherclient.Config{
		APIKey:  c.WeatherAPIKey,
		BaseURL: c.WeatherBaseURL,
	}
}

// RequireWeatherAPIKey fails when no API key is configured. Commands that
// never reach the upstream API (migrate) skip this check.
func (c Config) RequireWeatherAPIKey() error {
	if c.WeatherAPIKey == "" {
		return errors.New("WEATHER_API_KEY is required")
	}
	return nil
}

// MQTTEnabled reports whether weather payloads should be published.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
