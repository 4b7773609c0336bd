// Package backend defines the time series query interface and the named
// registry of implementations (memory, sqlite and, when linked in, duckdb).
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/stackviz/pkg/series"
	"github.com/chazu/stackviz/vm"
)

var log = commonlog.GetLogger("stackviz.backend")

// ErrUnknownBackend is returned by Open for an unregistered name.
var ErrUnknownBackend = errors.New("unknown backend")

// Backend answers data expressions over a time range.
type Backend interface {
	Query(ctx context.Context, r series.TimeRange, expr vm.DataExpr) ([]series.TimeSeries, error)
	Close() error
}

// Writer is implemented by backends that accept raw points.
type Writer interface {
	Write(ctx context.Context, tags map[string]string, points []series.Point) error
}

// Factory opens a backend from a data source name.
type Factory func(dsn string) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend available to Open. It panics on a duplicate
// name, like database/sql.Register.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("backend: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("backend: Register called twice for " + name)
	}
	registry[name] = f
}

// Open returns the backend registered under name.
func Open(name, dsn string) (Backend, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %v)", ErrUnknownBackend, name, Names())
	}
	b, err := f(dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", name, err)
	}
	log.Infof("opened %s backend", name)
	return b, nil
}

// Names lists registered backends, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply evaluates expr over series already selected by its query.
func Apply(expr vm.DataExpr, matched []series.TimeSeries, r series.TimeRange) ([]series.TimeSeries, error) {
	switch e := expr.(type) {
	case vm.AllExpr:
		sort.Slice(matched, func(i, j int) bool { return matched[i].Label < matched[j].Label })
		return matched, nil
	case vm.AggregateExpr:
		if len(matched) == 0 && e.Fn != vm.AggCount {
			return nil, nil
		}
		s, err := series.Aggregate(e.Fn, matched, r)
		if err != nil {
			return nil, err
		}
		s.Label = e.String()
		return []series.TimeSeries{s}, nil
	case vm.GroupByExpr:
		return series.GroupBy(e.Agg.Fn, e.Keys, matched, r)
	}
	return nil, fmt.Errorf("unsupported data expression %T", expr)
}
