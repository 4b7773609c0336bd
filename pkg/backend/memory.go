package backend

import (
	"context"
	"sort"
	"sync"

	"github.com/chazu/stackviz/pkg/series"
	"github.com/chazu/stackviz/vm"
)

func init() {
	Register("memory", func(string) (Backend, error) { return NewMemory(), nil })
}

type memorySeries struct {
	tags   map[string]string
	points []series.Point
}

// Memory is an in-process backend. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	series map[string]*memorySeries
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{series: make(map[string]*memorySeries)}
}

// Write appends points to the series identified by tags.
func (m *Memory) Write(ctx context.Context, tags map[string]string, points []series.Point) error {
	key := series.Key(tags)

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.series[key]
	if !ok {
		copied := make(map[string]string, len(tags))
		for k, v := range tags {
			copied[k] = v
		}
		s = &memorySeries{tags: copied}
		m.series[key] = s
	}
	s.points = append(s.points, points...)
	sort.SliceStable(s.points, func(i, j int) bool { return s.points[i].Time.Before(s.points[j].Time) })
	return nil
}

// Query selects the series matching expr's query and applies expr to them.
func (m *Memory) Query(ctx context.Context, r series.TimeRange, expr vm.DataExpr) ([]series.TimeSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := expr.Query()

	m.mu.RLock()
	var matched []series.TimeSeries
	for _, s := range m.series {
		if q.Matches(s.tags) {
			matched = append(matched, series.Consolidate(s.tags, s.points, r))
		}
	}
	m.mu.RUnlock()

	return Apply(expr, matched, r)
}

// Close releases nothing; it exists to satisfy Backend.
func (m *Memory) Close() error { return nil }
