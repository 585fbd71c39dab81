package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultLookupsLimit = 100
	maxLookupsLimit     = 1000
)

// parseCityQuery requires the parameter to be present. Its value is passed on
// as given, so "?city=" forwards an empty city.
func parseCityQuery(r *http.Request) (string, error) {
	q := r.URL.Query()
	if !q.Has("city") {
		return "", errors.New("missing 'city'")
	}
	return q.Get("city"), nil
}

func parseLookupsQuery(r *http.Request) (city string, limit int, err error) {
	q := r.URL.Query()
	city = strings.TrimSpace(q.Get("city"))

	limit = defaultLookupsLimit
	if s := q.Get("limit"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			return "", 0, errors.New("invalid 'limit' (expected integer)")
		}
		if n <= 0 {
			return "", 0, errors.New("'limit' must be > 0")
		}
		if n > maxLookupsLimit {
			return "", 0, errors.New("'limit' must be <= 1000")
		}
		limit = n
	}
	return city, limit, nil
}
