// Package series holds step-aligned time series and the consolidation and
// aggregation applied to them after a backend query.
package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ErrInvalidRange is returned for a time range that cannot hold a step.
var ErrInvalidRange = errors.New("invalid time range")

// MaxBuckets bounds the buckets of one TimeRange; every series over the
// range holds one float64 per bucket.
const MaxBuckets = 100000

// TimeRange is a half-open interval [Start, End) divided into Step-wide
// buckets. Start and End are always multiples of Step.
type TimeRange struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// NewTimeRange aligns start down and end up to step boundaries.
func NewTimeRange(start, end time.Time, step time.Duration) (TimeRange, error) {
	if step <= 0 {
		return TimeRange{}, fmt.Errorf("%w: step must be positive, got %s", ErrInvalidRange, step)
	}
	if !end.After(start) {
		return TimeRange{}, fmt.Errorf("%w: end %s is not after start %s",
			ErrInvalidRange, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	s := start.UTC().Truncate(step)
	e := end.UTC().Truncate(step)
	if e.Before(end.UTC()) {
		e = e.Add(step)
	}
	if n := e.Sub(s) / step; n > MaxBuckets {
		return TimeRange{}, fmt.Errorf("%w: %d buckets of %s exceed the limit of %d",
			ErrInvalidRange, int64(n), step, MaxBuckets)
	}
	return TimeRange{Start: s, End: e, Step: step}, nil
}

// Len returns the number of buckets.
func (r TimeRange) Len() int {
	if r.Step <= 0 {
		return 0
	}
	return int(r.End.Sub(r.Start) / r.Step)
}

// At returns the start time of bucket i.
func (r TimeRange) At(i int) time.Time {
	return r.Start.Add(time.Duration(i) * r.Step)
}

// Index returns the bucket holding t, or -1 when t is outside the range.
func (r TimeRange) Index(t time.Time) int {
	if t.Before(r.Start) || !t.Before(r.End) {
		return -1
	}
	return int(t.Sub(r.Start) / r.Step)
}

// Point is one raw sample.
type Point struct {
	Time  time.Time `json:"t"`
	Value float64   `json:"v"`
}

// TimeSeries is a tagged sequence of step-aligned values. Missing buckets
// hold NaN.
type TimeSeries struct {
	Tags   map[string]string
	Label  string
	Start  time.Time
	Step   time.Duration
	Values []float64
}

// Key renders tags canonically: sorted k=v pairs joined by commas.
func Key(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + tags[k]
	}
	return strings.Join(parts, ",")
}

// Consolidate averages raw points into the buckets of r. Points outside r
// are ignored.
func Consolidate(tags map[string]string, points []Point, r TimeRange) TimeSeries {
	n := r.Len()
	sums := make([]float64, n)
	counts := make([]int, n)
	for _, p := range points {
		i := r.Index(p.Time)
		if i < 0 || math.IsNaN(p.Value) {
			continue
		}
		sums[i] += p.Value
		counts[i]++
	}

	values := make([]float64, n)
	for i := range values {
		if counts[i] == 0 {
			values[i] = math.NaN()
		} else {
			values[i] = sums[i] / float64(counts[i])
		}
	}
	return TimeSeries{Tags: copyTags(tags), Label: Key(tags), Start: r.Start, Step: r.Step, Values: values}
}

func copyTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
