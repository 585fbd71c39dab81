package service

import (
	"context"
	"log/slog"
	"time"

	"cloudpico-forecast/internal/metrics"
	"cloudpico-forecast/internal/modules/weather/client"
	"cloudpico-forecast/internal/modules/weather/repository"
	"cloudpico-forecast/internal/modules/weather/types"
)

// Publisher fans a successful payload out to subscribers.
type Publisher interface {
	Publish(kind types.Kind, city string, payload types.Response) error
}

type WeatherService interface {
	Current(ctx context.Context, city string) (types.Response, error)
	Forecast(ctx context.Context, city string) (types.Response, error)
	RecentLookups(city string, limit int) ([]types.Lookup, error)
}

type serviceImpl struct {
	client     client.WeatherClient
	repository repository.LookupRepository
	publisher  Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires the weather client to the lookup log and the publisher.
// repository and publisher may be nil.
func NewService(c client.WeatherClient, repo repository.LookupRepository, publisher Publisher, logger *slog.Logger) WeatherService {
	if logger == nil {
		logger = slog.Default()
	}
	return &serviceImpl{
		client:     c,
		repository: repo,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *serviceImpl) Current(ctx context.Context, city string) (types.Response, error) {
	return s.fetch(ctx, types.KindCurrent, city, s.client.FetchCurrent)
}

func (s *serviceImpl) Forecast(ctx context.Context, city string) (types.Response, error) {
	return s.fetch(ctx, types.KindForecast, city, s.client.FetchForecast)
}

func (s *serviceImpl) RecentLookups(city string, limit int) ([]types.Lookup, error) {
	if s.repository == nil {
		return []types.Lookup{}, nil
	}
	return s.repository.GetRecentLookups(city, limit)
}

type fetchFunc func(ctx context.Context, city string) (types.Response, error)

func (s *serviceImpl) fetch(ctx context.Context, kind types.Kind, city string, fn fetchFunc) (types.Response, error) {
	start := s.now()
	resp, err := fn(ctx, city)
	elapsed := s.now().Sub(start)

	metrics.ObserveFetch(string(kind), err == nil, elapsed)

	lookup := types.Lookup{
		Kind:       kind,
		City:       city,
		OK:         err == nil,
		Time:       start,
		DurationMS: elapsed.Milliseconds(),
	}
	if err != nil {
		lookup.Message = err.Error()
		if fe, ok := client.AsFetchError(err); ok {
			lookup.StatusCode = fe.StatusCode
		}
		s.logger.Warn("weather fetch failed",
			"kind", kind,
			"city", city,
			"status", lookup.StatusCode,
			"error", err,
		)
	} else {
		s.logger.Debug("weather fetched", "kind", kind, "city", city, "duration_ms", lookup.DurationMS)
	}

	s.record(lookup)

	if err == nil {
		s.publish(kind, city, resp)
	}

	return resp, err
}

func (s *serviceImpl) record(lookup types.Lookup) {
	if s.repository == nil {
		return
	}
	if err := s.repository.InsertLookup(lookup); err != nil {
		s.logger.Error("failed to record lookup", "kind", lookup.Kind, "city", lookup.City, "error", err)
	}
}

func (s *serviceImpl) publish(kind types.Kind, city string, payload types.Response) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(kind, city, payload); err != nil {
		metrics.MQTTPublishFailuresTotal.Inc()
		s.logger.Warn("failed to publish weather", "kind", kind, "city", city, "error", err)
	}
}
