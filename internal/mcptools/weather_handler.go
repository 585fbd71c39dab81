package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"cloudpico-forecast/internal/modules/weather/service"
	"cloudpico-forecast/internal/modules/weather/types"
)

// WeatherHandler exposes the get_current_weather and get_forecast tools.
type WeatherHandler struct {
	service service.WeatherService
}

func NewWeatherHandler(svc service.WeatherService) *WeatherHandler {
	return &WeatherHandler{service: svc}
}

func (wh *WeatherHandler) RegisterTools(s *server.MCPServer) error {
	currentTool := mcp.NewTool("get_current_weather",
		mcp.WithDescription("Current weather for a city in metric units. Returns the upstream OpenWeatherMap response as JSON."),
		mcp.WithString("city", mcp.Required(), mcp.Description("City name, optionally with a country code, e.g. \"London\" or \"Paris,FR\"")),
	)
	s.AddTool(currentTool, wh.handleCurrent)

	forecastTool := mcp.NewTool("get_forecast",
		mcp.WithDescription("5 day / 3 hour forecast for a city in metric units. Returns the upstream OpenWeatherMap response as JSON."),
		mcp.WithString("city", mcp.Required(), mcp.Description("City name, optionally with a country code")),
	)
	s.AddTool(forecastTool, wh.handleForecast)
	return nil
}

func (wh *WeatherHandler) handleCurrent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return wh.handleFetch(ctx, req, wh.service.Current)
}

func (wh *WeatherHandler) handleForecast(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return wh.handleFetch(ctx, req, wh.service.Forecast)
}

func (wh *WeatherHandler) handleFetch(
	ctx context.Context,
	req mcp.CallToolRequest,
	fetch func(ctx context.Context, city string) (types.Response, error),
) (*mcp.CallToolResult, error) {
	city, err := req.RequireString("city")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := fetch(ctx, city)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	b, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode weather response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
