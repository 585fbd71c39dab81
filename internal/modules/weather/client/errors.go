package client

import "errors"

// FetchError is the only error FetchCurrent and FetchForecast return.
// Message is either the upstream "message" field or a fixed per-operation fallback.
type FetchError struct {
	Message string
	// StatusCode is the upstream HTTP status, 0 when no response was received.
	StatusCode int
	// Err is the transport or decode failure behind the error, if any.
	Err error
}

func (e *FetchError) Error() string {
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsFetchError reports whether err is (or wraps) a *FetchError and returns it.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
