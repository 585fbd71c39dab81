package weather

import (
	"database/sql"
	"log/slog"
	"net/http"

	"cloudpico-forecast/internal/modules/weather/client"
	"cloudpico-forecast/internal/modules/weather/controller"
	"cloudpico-forecast/internal/modules/weather/repository"
	"cloudpico-forecast/internal/modules/weather/service"
)

// RegisterFeature builds the weather service and mounts its routes on mux.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, weatherClient client.WeatherClient, publisher service.Publisher, logger *slog.Logger) service.WeatherService {
	weatherRepository := repository.NewRepository(db)
	weatherService := service.NewService(weatherClient, weatherRepository, publisher, logger)
	weatherController := controller.NewWeatherController(weatherService, logger)
	weatherController.RegisterRoutes(mux)
	return weatherService
}
