package controller

import (
	"log/slog"
	"net/http"

	"cloudpico-forecast/internal/modules/weather/service"
)

type WeatherController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type weatherControllerImpl struct {
	service service.WeatherService
	logger  *slog.Logger
}

func NewWeatherController(svc service.WeatherService, logger *slog.Logger) WeatherController {
	if logger == nil {
		logger = slog.Default()
	}
	return &weatherControllerImpl{service: svc, logger: logger}
}

func (c *weatherControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/weather/current", c.handleCurrent)
	mux.HandleFunc("GET /api/v1/weather/forecast", c.handleForecast)
	mux.HandleFunc("GET /api/v1/lookups", c.handleLookups)
}
