package series

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Aggregation functions.
const (
	Sum   = "sum"
	Count = "count"
	Min   = "min"
	Max   = "max"
	Avg   = "avg"
)

// Aggregate folds in into one series over r, bucket by bucket. NaN values
// are skipped; a bucket with no values is NaN, except for count, which is 0.
// The result carries the tags every input agrees on.
func Aggregate(fn string, in []TimeSeries, r TimeRange) (TimeSeries, error) {
	n := r.Len()
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		acc := newAccumulator(fn)
		if acc == nil {
			return TimeSeries{}, fmt.Errorf("unknown aggregation %q", fn)
		}
		for _, s := range in {
			if i < len(s.Values) {
				acc.add(s.Values[i])
			}
		}
		values[i] = acc.result()
	}

	tags := commonTags(in)
	label := fn
	if k := Key(tags); k != "" {
		label = fn + "(" + k + ")"
	}
	return TimeSeries{Tags: tags, Label: label, Start: r.Start, Step: r.Step, Values: values}, nil
}

// GroupBy aggregates in separately for each distinct combination of the
// values of keys. Series missing any key are dropped. Groups are returned
// sorted by their key values.
func GroupBy(fn string, keys []string, in []TimeSeries, r TimeRange) ([]TimeSeries, error) {
	groups := make(map[string][]TimeSeries)
	for _, s := range in {
		parts := make([]string, len(keys))
		ok := true
		for i, k := range keys {
			v, present := s.Tags[k]
			if !present {
				ok = false
				break
			}
			parts[i] = k + "=" + v
		}
		if !ok {
			continue
		}
		id := strings.Join(parts, ",")
		groups[id] = append(groups[id], s)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]TimeSeries, 0, len(ids))
	for _, id := range ids {
		agg, err := Aggregate(fn, groups[id], r)
		if err != nil {
			return nil, err
		}
		group := groups[id][0]
		agg.Tags = make(map[string]string, len(keys))
		for _, k := range keys {
			agg.Tags[k] = group.Tags[k]
		}
		agg.Label = fn + "(" + id + ")"
		out = append(out, agg)
	}
	return out, nil
}

func commonTags(in []TimeSeries) map[string]string {
	out := make(map[string]string)
	if len(in) == 0 {
		return out
	}
	for k, v := range in[0].Tags {
		out[k] = v
	}
	for _, s := range in[1:] {
		for k, v := range out {
			if s.Tags[k] != v {
				delete(out, k)
			}
		}
	}
	return out
}

type accumulator struct {
	fn  string
	n   int
	sum float64
	min float64
	max float64
}

func newAccumulator(fn string) *accumulator {
	switch fn {
	case Sum, Count, Min, Max, Avg:
		return &accumulator{fn: fn, min: math.Inf(1), max: math.Inf(-1)}
	}
	return nil
}

func (a *accumulator) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	a.n++
	a.sum += v
	a.min = math.Min(a.min, v)
	a.max = math.Max(a.max, v)
}

func (a *accumulator) result() float64 {
	if a.fn == Count {
		return float64(a.n)
	}
	if a.n == 0 {
		return math.NaN()
	}
	switch a.fn {
	case Sum:
		return a.sum
	case Min:
		return a.min
	case Max:
		return a.max
	}
	return a.sum / float64(a.n)
}
