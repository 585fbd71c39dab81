// Package client talks to the OpenWeatherMap v2.5 data API.
package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"cloudpico-forecast/internal/modules/weather/types"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	units        = "metric"
	currentPath  = "/weather"
	forecastPath = "/forecast"

	currentFallback  = "Failed to fetch weather data"
	forecastFallback = "Failed to fetch forecast data"
)

// Config is fixed at construction; the client keeps its own copy.
type Config struct {
	APIKey  string
	BaseURL string
}

type WeatherClient interface {
	FetchCurrent(ctx context.Context, city string) (types.Response, error)
	FetchForecast(ctx context.Context, city string) (types.Response, error)
}

type clientImpl struct {
	cfg    Config
	http   *resty.Client
	logger *slog.Logger
}

func New(cfg Config, opts ...Option) WeatherClient {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	var rc *resty.Client
	if o.httpClient != nil {
		rc = resty.NewWithClient(o.httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(cfg.BaseURL).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{logger: o.logger})

	return &clientImpl{cfg: cfg, http: rc, logger: o.logger}
}

// FetchCurrent returns the current conditions for city as sent by the upstream API.
func (c *clientImpl) FetchCurrent(ctx context.Context, city string) (types.Response, error) {
	return c.fetch(ctx, types.KindCurrent, currentPath, currentFallback, city)
}

// FetchForecast returns the 5 day / 3 hour forecast for city as sent by the upstream API.
func (c *clientImpl) FetchForecast(ctx context.Context, city string) (types.Response, error) {
	return c.fetch(ctx, types.KindForecast, forecastPath, forecastFallback, city)
}

func (c *clientImpl) query(city string) map[string]string {
	return map[string]string{
		"q":     city,
		"appid": c.cfg.APIKey,
		"units": units,
	}
}

func (c *clientImpl) fetch(ctx context.Context, kind types.Kind, path string, fallback string, city string) (types.Response, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(c.query(city)).
		Get(path)
	if err != nil {
		c.logger.Debug("weather fetch failed",
			"kind", kind,
			"city", city,
			"error", err,
		)
		return nil, &FetchError{Message: fallback, Err: err}
	}

	c.logger.Debug("weather fetch",
		"kind", kind,
		"city", city,
		"status", resp.StatusCode(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if !resp.IsSuccess() {
		msg := upstreamMessage(resp.Body())
		if msg == "" {
			msg = fallback
		}
		return nil, &FetchError{Message: msg, StatusCode: resp.StatusCode()}
	}

	var out types.Response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &FetchError{Message: fallback, StatusCode: resp.StatusCode(), Err: err}
	}
	if out == nil {
		return nil, &FetchError{Message: fallback, StatusCode: resp.StatusCode()}
	}
	return out, nil
}

// upstreamMessage extracts a non-empty string "message" from an error body.
func upstreamMessage(body []byte) string {
	var payload struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	s, _ := payload.Message.(string)
	return s
}
