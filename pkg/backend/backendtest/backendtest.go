// Package backendtest is a conformance suite shared by backend
// implementations.
package backendtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/chazu/stackviz/pkg/backend"
	"github.com/chazu/stackviz/pkg/series"
	"github.com/chazu/stackviz/vm"
)

// Start is the first bucket of the fixture data.
var Start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type writable interface {
	backend.Backend
	backend.Writer
}

// Fixture writes three cpu series and one mem series, one point per minute
// for five minutes. Values are node-dependent: node a = i, node b = 10*i.
func Fixture(t *testing.T, b backend.Writer) {
	t.Helper()
	ctx := context.Background()
	fixtures := []map[string]string{
		{"name": "cpu", "node": "a", "app": "www"},
		{"name": "cpu", "node": "b", "app": "www"},
		{"name": "cpu", "node": "b", "app": "db"},
		{"name": "mem", "node": "a", "app": "www"},
	}
	for _, tags := range fixtures {
		scale := 1.0
		if tags["node"] == "b" {
			scale = 10
		}
		points := make([]series.Point, 5)
		for i := range points {
			points[i] = series.Point{Time: Start.Add(time.Duration(i) * time.Minute), Value: scale * float64(i)}
		}
		if err := b.Write(ctx, tags, points); err != nil {
			t.Fatalf("Write(%v): %v", tags, err)
		}
	}
}

// Run exercises open against the fixture.
func Run(t *testing.T, open func(t *testing.T) backend.Backend) {
	in := vm.NewInterpreter(vm.StandardVocabulary())

	setup := func(t *testing.T) backend.Backend {
		b := open(t)
		t.Cleanup(func() { b.Close() })
		w, ok := b.(writable)
		if !ok {
			t.Fatalf("%T does not accept writes", b)
		}
		Fixture(t, w)
		return b
	}

	query := func(t *testing.T, b backend.Backend, program string) []series.TimeSeries {
		t.Helper()
		r, err := in.Execute(program)
		if err != nil {
			t.Fatalf("Execute(%q): %v", program, err)
		}
		top, _ := r.Top()
		style, ok := vm.AsStyle(top)
		if !ok {
			t.Fatalf("%q did not leave an expression", program)
		}
		tr, err := series.NewTimeRange(Start, Start.Add(5*time.Minute), time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		out, err := b.Query(context.Background(), tr, style.Data)
		if err != nil {
			t.Fatalf("Query(%q): %v", program, err)
		}
		return out
	}

	t.Run("All", func(t *testing.T) {
		b := setup(t)
		out := query(t, b, "name,cpu,:eq,:all")
		if len(out) != 3 {
			t.Fatalf("got %d series, want 3", len(out))
		}
		for _, s := range out {
			if len(s.Values) != 5 {
				t.Errorf("%s has %d values, want 5", s.Label, len(s.Values))
			}
		}
	})

	t.Run("Sum", func(t *testing.T) {
		b := setup(t)
		out := query(t, b, "name,cpu,:eq")
		if len(out) != 1 {
			t.Fatalf("got %d series, want 1", len(out))
		}
		if got := out[0].Values[2]; got != 2+20+20 {
			t.Errorf("sum at minute 2 = %v, want 42", got)
		}
	})

	t.Run("MaxAnd", func(t *testing.T) {
		b := setup(t)
		out := query(t, b, "name,cpu,:eq,app,www,:eq,:and,:max")
		if got := out[0].Values[4]; got != 40 {
			t.Errorf("max at minute 4 = %v, want 40", got)
		}
	})

	t.Run("GroupBy", func(t *testing.T) {
		b := setup(t)
		out := query(t, b, "name,cpu,:eq,:avg,(,node,),:by")
		if len(out) != 2 {
			t.Fatalf("got %d groups, want 2", len(out))
		}
		if out[0].Tags["node"] != "a" || out[1].Values[1] != 10 {
			t.Errorf("groups = %+v", out)
		}
	})

	t.Run("NoMatch", func(t *testing.T) {
		b := setup(t)
		out := query(t, b, "name,disk,:eq,:all")
		if len(out) != 0 {
			t.Errorf("got %d series, want none", len(out))
		}
	})

	t.Run("OutsideRange", func(t *testing.T) {
		b := setup(t)
		tr, _ := series.NewTimeRange(Start.Add(time.Hour), Start.Add(2*time.Hour), time.Minute)
		out, err := b.Query(context.Background(), tr, vm.AllExpr{Q: vm.EqualQuery{Key: "name", Value: "mem"}})
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != 1 {
			t.Fatalf("got %d series, want 1", len(out))
		}
		for _, v := range out[0].Values {
			if !math.IsNaN(v) {
				t.Fatalf("values outside the data should be NaN, got %v", out[0].Values)
			}
		}
	})
}
