package types

import "time"

// Response is an upstream payload, decoded but otherwise untouched.
type Response map[string]any

type Kind string

const (
	KindCurrent  Kind = "current"
	KindForecast Kind = "forecast"
)

// Lookup is one recorded fetch attempt. Payloads are never stored.
type Lookup struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	City       string    `json:"city"`
	OK         bool      `json:"ok"`
	StatusCode int       `json:"statusCode,omitempty"`
	Message    string    `json:"message,omitempty"`
	Time       time.Time `json:"time"`
	DurationMS int64     `json:"durationMs"`
}
