package repository

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cloudpico-forecast/internal/modules/weather/types"
)

//go:embed sql/insert-lookup.sql
var insertLookupSQL string

//go:embed sql/get-recent-lookups.sql
var getRecentLookupsSQL string

//go:embed sql/get-lookups-count.sql
var getLookupsCountSQL string

// Fixed width so that ts sorts lexically in SQLite.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

type LookupRepository interface {
	InsertLookup(lookup types.Lookup) error
	// GetRecentLookups returns the newest lookups first. An empty city matches all cities.
	GetRecentLookups(city string, limit int) ([]types.Lookup, error)
	GetLookupsCount(city string) (int, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) LookupRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertLookup(l types.Lookup) error {
	switch l.Kind {
	case types.KindCurrent, types.KindForecast:
	default:
		return fmt.Errorf("invalid lookup kind %q", l.Kind)
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Time.IsZero() {
		l.Time = time.Now()
	}

	var statusVal any
	if l.StatusCode != 0 {
		statusVal = l.StatusCode
	}
	var messageVal any
	if l.Message != "" {
		messageVal = l.Message
	}

	_, err := r.db.Exec(insertLookupSQL,
		l.ID,
		string(l.Kind),
		l.City,
		l.OK,
		statusVal,
		messageVal,
		l.Time.UTC().Format(tsLayout),
		l.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert lookup: %w", err)
	}
	return nil
}

func (r *repositoryImpl) GetRecentLookups(city string, limit int) ([]types.Lookup, error) {
	rows, err := r.db.Query(getRecentLookupsSQL, city, city, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close lookup rows", "error", err)
		}
	}()
	return scanLookups(rows)
}

func (r *repositoryImpl) GetLookupsCount(city string) (int, error) {
	var n int
	err := r.db.QueryRow(getLookupsCountSQL, city, city).Scan(&n)
	return n, err
}

func scanLookups(rows *sql.Rows) ([]types.Lookup, error) {
	out := []types.Lookup{}
	for rows.Next() {
		var (
			l       types.Lookup
			kind    string
			status  sql.NullInt64
			message sql.NullString
			ts      string
		)
		if err := rows.Scan(&l.ID, &kind, &l.City, &l.OK, &status, &message, &ts, &l.DurationMS); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		l.Kind = types.Kind(kind)
		l.StatusCode = int(status.Int64)
		l.Message = message.String
		l.Time = t
		out = append(out, l)
	}
	return out, rows.Err()
}
