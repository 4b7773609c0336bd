package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/stackviz/pkg/series"
	"github.com/chazu/stackviz/vm"
)

// sqlSchema is accepted by both sqlite and duckdb.
var sqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS series (
		series_key TEXT PRIMARY KEY,
		tags TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS points (
		series_key TEXT NOT NULL,
		ts BIGINT NOT NULL,
		val DOUBLE NOT NULL
	)`,
}

// SQL stores series in two tables: series (canonical key, JSON tags) and
// points (series key, unix milliseconds, value). Tag queries are matched in
// Go against the series table; only points of matching series are read.
type SQL struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQL prepares db for use as a backend, creating tables as needed.
func NewSQL(db *sql.DB) (*SQL, error) {
	for _, stmt := range sqlSchema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}
	return &SQL{db: db}, nil
}

// DB exposes the underlying handle.
func (s *SQL) DB() *sql.DB { return s.db }

// Write stores points for the series identified by tags.
func (s *SQL) Write(ctx context.Context, tags map[string]string, points []series.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := series.Key(tags)
	data, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO series (series_key, tags) VALUES (?, ?) ON CONFLICT (series_key) DO NOTHING",
		key, string(data)); err != nil {
		return fmt.Errorf("saving series %s: %w", key, err)
	}
	for _, p := range points {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO points (series_key, ts, val) VALUES (?, ?, ?)",
			key, p.Time.UnixMilli(), p.Value); err != nil {
			return fmt.Errorf("saving point for %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Query selects matching series and applies expr to them.
func (s *SQL) Query(ctx context.Context, r series.TimeRange, expr vm.DataExpr) ([]series.TimeSeries, error) {
	q := expr.Query()

	rows, err := s.db.QueryContext(ctx, "SELECT series_key, tags FROM series ORDER BY series_key")
	if err != nil {
		return nil, fmt.Errorf("listing series: %w", err)
	}
	type candidate struct {
		key  string
		tags map[string]string
	}
	var candidates []candidate
	for rows.Next() {
		var key, data string
		if err := rows.Scan(&key, &data); err != nil {
			rows.Close()
			return nil, fmt.Errorf("reading series: %w", err)
		}
		var tags map[string]string
		if err := json.Unmarshal([]byte(data), &tags); err != nil {
			rows.Close()
			return nil, fmt.Errorf("parsing tags of %s: %w", key, err)
		}
		if q.Matches(tags) {
			candidates = append(candidates, candidate{key, tags})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing series: %w", err)
	}

	matched := make([]series.TimeSeries, 0, len(candidates))
	for _, c := range candidates {
		points, err := s.points(ctx, c.key, r)
		if err != nil {
			return nil, err
		}
		matched = append(matched, series.Consolidate(c.tags, points, r))
	}
	return Apply(expr, matched, r)
}

func (s *SQL) points(ctx context.Context, key string, r series.TimeRange) ([]series.Point, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT ts, val FROM points WHERE series_key = ? AND ts >= ? AND ts < ? ORDER BY ts",
		key, r.Start.UnixMilli(), r.End.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("querying points of %s: %w", key, err)
	}
	defer rows.Close()

	var points []series.Point
	for rows.Next() {
		var ts int64
		var v float64
		if err := rows.Scan(&ts, &v); err != nil {
			return nil, fmt.Errorf("reading points of %s: %w", key, err)
		}
		points = append(points, series.Point{Time: time.UnixMilli(ts).UTC(), Value: v})
	}
	return points, rows.Err()
}

// Close closes the database connection.
func (s *SQL) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
