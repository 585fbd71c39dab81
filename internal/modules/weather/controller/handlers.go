package controller

import (
	"context"
	"net/http"

	"cloudpico-forecast/internal/modules/weather/client"
	"cloudpico-forecast/internal/modules/weather/types"
	"cloudpico-forecast/internal/utils"
)

func (c *weatherControllerImpl) handleCurrent(w http.ResponseWriter, r *http.Request) {
	c.serveFetch(w, r, types.KindCurrent, c.service.Current)
}

func (c *weatherControllerImpl) handleForecast(w http.ResponseWriter, r *http.Request) {
	c.serveFetch(w, r, types.KindForecast, c.service.Forecast)
}

func (c *weatherControllerImpl) serveFetch(
	w http.ResponseWriter,
	r *http.Request,
	kind types.Kind,
	fetch func(ctx context.Context, city string) (types.Response, error),
) {
	city, err := parseCityQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := fetch(r.Context(), city)
	if err != nil {
		status, msg := fetchErrorStatus(err)
		c.logger.Warn("weather request failed", "kind", kind, "city", city, "status", status, "error", err)
		utils.WriteError(w, status, msg)
		return
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (c *weatherControllerImpl) handleLookups(w http.ResponseWriter, r *http.Request) {
	city, limit, err := parseLookupsQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	lookups, err := c.service.RecentLookups(city, limit)
	if err != nil {
		c.logger.Error("lookups: query failed", "city", city, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load lookups")
		return
	}
	utils.WriteJSON(w, http.StatusOK, lookups)
}

// fetchErrorStatus maps a fetch failure to a response status. Upstream client
// errors are passed through; everything else is a bad gateway.
func fetchErrorStatus(err error) (int, string) {
	fe, ok := client.AsFetchError(err)
	if !ok {
		return http.StatusBadGateway, err.Error()
	}
	if fe.StatusCode >= 400 && fe.StatusCode < 500 {
		return fe.StatusCode, fe.Message
	}
	return http.StatusBadGateway, fe.Message
}
