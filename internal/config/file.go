package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// fileConfig is the TOML layout accepted through CONFIG_FILE.
//
//	app_env = "prod"
//	log_level = "info"
//	http_addr = ":8080"
//
//	[weather]
//	api_key = "..."
//	base_url = "https://api.openweathermap.org/data/2.5"
//
//	[sqlite]
//	path = "/data/forecast.db"
//
//	[mqtt]
//	broker = "mosquitto"
//	port = 1883
type fileConfig struct {
	AppEnv   string `toml:"app_env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`

	Weather struct {
		APIKey  string `toml:"api_key"`
		BaseURL string `toml:"base_url"`
	} `toml:"weather"`

	SQLite struct {
		Driver          string `toml:"driver"`
		DSN             string `toml:"dsn"`
		Path            string `toml:"path"`
		MaxOpenConns    *int   `toml:"max_open_conns"`
		MaxIdleConns    *int   `toml:"max_idle_conns"`
		ConnMaxLifetime string `toml:"conn_max_lifetime"`
		LogQueries      *bool  `toml:"log_queries"`
	} `toml:"sqlite"`

	MQTT struct {
		Broker      string `toml:"broker"`
		Port        *int   `toml:"port"`
		ClientID    string `toml:"client_id"`
		TopicPrefix string `toml:"topic_prefix"`
	} `toml:"mqtt"`
}

// loadFileValues decodes path and flattens it to the env var names LoadFromEnv reads.
func loadFileValues(path string) (map[string]string, error) {
	values := map[string]string{}
	if path == "" {
		return values, nil
	}

	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return nil, fmt.Errorf("CONFIG_FILE %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("CONFIG_FILE %q: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	set := func(key, v string) {
		if v = strings.TrimSpace(v); v != "" {
			values[key] = v
		}
	}
	setInt := func(key string, v *int) {
		if v != nil {
			values[key] = strconv.Itoa(*v)
		}
	}

	set("APP_ENV", fc.AppEnv)
	set("LOG_LEVEL", fc.LogLevel)
	set("HTTP_ADDR", fc.HTTPAddr)
	set("WEATHER_API_KEY", fc.Weather.APIKey)
	set("WEATHER_BASE_URL", fc.Weather.BaseURL)
	set("SQLITE_DRIVER", fc.SQLite.Driver)
	set("SQLITE_DSN", fc.SQLite.DSN)
	set("SQLITE_PATH", fc.SQLite.Path)
	setInt("SQLITE_MAX_OPEN_CONNS", fc.SQLite.MaxOpenConns)
	setInt("SQLITE_MAX_IDLE_CONNS", fc.SQLite.MaxIdleConns)
	set("SQLITE_CONN_MAX_LIFETIME", fc.SQLite.ConnMaxLifetime)
	if fc.SQLite.LogQueries != nil {
		values["SQLITE_LOG_QUERIES"] = strconv.FormatBool(*fc.SQLite.LogQueries)
	}
	set("MQTT_BROKER", fc.MQTT.Broker)
	setInt("MQTT_PORT", fc.MQTT.Port)
	set("MQTT_CLIENT_ID", fc.MQTT.ClientID)
	set("MQTT_TOPIC_PREFIX", fc.MQTT.TopicPrefix)

	return values, nil
}
