// Package graph turns an evaluated program into a chart: every expression
// left on the stack is queried from a backend and drawn with its style.
package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/stackviz/pkg/backend"
	"github.com/chazu/stackviz/pkg/chart"
	"github.com/chazu/stackviz/pkg/pngimage"
	"github.com/chazu/stackviz/pkg/series"
	"github.com/chazu/stackviz/vm"
)

var log = commonlog.GetLogger("stackviz.graph")

// ErrNotPlottable is returned when the final stack holds a value that is not
// an expression.
var ErrNotPlottable = errors.New("value cannot be plotted")

// Request describes one graph.
type Request struct {
	Program string
	Range   series.TimeRange
	Width   int
	Height  int
}

// Renderer evaluates programs and draws their results.
type Renderer struct {
	Interpreter *vm.Interpreter
	Backend     backend.Backend
}

// Lines queries the backend for every expression on the final stack of r,
// bottom first.
func Lines(ctx context.Context, b backend.Backend, tr series.TimeRange, r *vm.Result) ([]chart.Line, error) {
	var lines []chart.Line
	for i, v := range r.Stack() {
		style, ok := vm.AsStyle(v)
		if !ok {
			return nil, fmt.Errorf("%w: stack item %d is a %s (%s)", ErrNotPlottable, i, v.Kind(), v)
		}
		out, err := b.Query(ctx, tr, style.Data)
		if err != nil {
			return nil, &BackendError{Expr: style.Data.String(), Err: err}
		}
		for _, ts := range out {
			lines = append(lines, chart.Line{Series: ts, Style: chart.StyleFrom(style, len(lines))})
		}
	}
	return lines, nil
}

// BackendError wraps a backend failure with the expression being queried.
type BackendError struct {
	Expr string
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("querying %s: %v", e.Expr, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Render evaluates req.Program and draws the result. The program text is
// recorded in the image metadata.
func (g *Renderer) Render(ctx context.Context, req Request) (*pngimage.Image, error) {
	start := time.Now()

	result, err := g.Interpreter.Execute(req.Program)
	if err != nil {
		return nil, err
	}
	lines, err := Lines(ctx, g.Backend, req.Range, result)
	if err != nil {
		return nil, err
	}

	img := chart.Render(chart.Options{Width: req.Width, Height: req.Height, Range: req.Range}, lines)
	img.Metadata["program"] = req.Program
	log.Debugf("rendered %d lines for %q in %s", len(lines), req.Program, time.Since(start))
	return img, nil
}

// RenderOrError is Render, except that failures produce an error
// placeholder image of the requested size.
func (g *Renderer) RenderOrError(ctx context.Context, req Request) (*pngimage.Image, error) {
	img, err := g.Render(ctx, req)
	if err != nil {
		placeholder := pngimage.ErrorImage(err.Error(), req.Width, req.Height)
		placeholder.Metadata["program"] = req.Program
		return placeholder, err
	}
	return img, nil
}
