package graph

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/stackviz/pkg/series"
)

// Defaults fills in what a request leaves out.
type Defaults struct {
	Width  int
	Height int
	Step   time.Duration
	Span   time.Duration
}

// Params are the raw, string-valued graph parameters of an HTTP or CLI
// request: s (start), e (end), step, w and h.
type Params struct {
	Start  string
	End    string
	Step   string
	Width  string
	Height string
}

// ParseRequest resolves p against d and now. End defaults to now, start to
// the end minus the default span. Start may be relative to the end
// ("e-1h"), either may be relative to now ("-30m"), unix seconds, or
// RFC 3339.
func ParseRequest(program string, p Params, d Defaults, now time.Time) (Request, error) {
	req := Request{Program: program, Width: d.Width, Height: d.Height}

	var err error
	if p.Width != "" {
		if req.Width, err = parseSize("w", p.Width); err != nil {
			return Request{}, err
		}
	}
	if p.Height != "" {
		if req.Height, err = parseSize("h", p.Height); err != nil {
			return Request{}, err
		}
	}

	step := d.Step
	if p.Step != "" {
		if step, err = time.ParseDuration(p.Step); err != nil {
			return Request{}, fmt.Errorf("invalid step %q: %w", p.Step, err)
		}
	}

	end := now
	if p.End != "" && p.End != "now" {
		if end, err = parseTime(p.End, now, time.Time{}); err != nil {
			return Request{}, fmt.Errorf("invalid end %q: %w", p.End, err)
		}
	}
	start := end.Add(-d.Span)
	if p.Start != "" {
		if start, err = parseTime(p.Start, now, end); err != nil {
			return Request{}, fmt.Errorf("invalid start %q: %w", p.Start, err)
		}
	}

	if req.Range, err = series.NewTimeRange(start, end, step); err != nil {
		return Request{}, err
	}
	return req, nil
}

func parseSize(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 4096 {
		return 0, fmt.Errorf("invalid %s %q: want 1-4096", name, s)
	}
	return n, nil
}

func parseTime(s string, now, end time.Time) (time.Time, error) {
	switch {
	case s == "now":
		return now, nil
	case strings.HasPrefix(s, "e-") && !end.IsZero():
		d, err := time.ParseDuration(s[2:])
		if err != nil {
			return time.Time{}, err
		}
		return end.Add(-d), nil
	case strings.HasPrefix(s, "-"):
		d, err := time.ParseDuration(s[1:])
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(-d), nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}
