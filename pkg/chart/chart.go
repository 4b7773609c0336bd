// Package chart draws step-aligned time series into a PNG image. Text is
// never rendered; legends travel as image metadata and appear in the image
// as color swatches.
package chart

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	"github.com/chazu/stackviz/pkg/pngimage"
	"github.com/chazu/stackviz/pkg/series"
	"github.com/chazu/stackviz/vm"
)

const (
	margin      = 8
	legendRow   = 12
	swatchSize  = 8
	minPlotSize = 10
)

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	frame      = color.RGBA{0x99, 0x99, 0x99, 0xff}
	zeroLine   = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
)

// Line is one series with its style.
type Line struct {
	Series series.TimeSeries
	Style  Style
}

// Options sizes the chart and names the time range it covers.
type Options struct {
	Width  int
	Height int
	Range  series.TimeRange
}

// Render draws lines and returns the image with metadata describing the
// range and each line's legend.
func Render(opts Options, lines []Line) *pngimage.Image {
	w, h := max(opts.Width, 2*margin+minPlotSize), max(opts.Height, 2*margin+minPlotSize)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	legendHeight := legendRow * len(lines)
	bottom := h - margin - legendHeight
	if bottom-margin < minPlotSize {
		bottom = margin + minPlotSize
	}
	plot := image.Rect(margin, margin, w-margin, bottom)

	stacked := stackValues(lines)
	axes := [2]scale{axisScale(lines, stacked, 0), axisScale(lines, stacked, 1)}

	if y, ok := axes[0].y(0, plot); ok {
		hline(img, plot.Min.X, plot.Max.X-1, y, zeroLine)
	}

	n := opts.Range.Len()
	for i, l := range lines {
		sc := axes[l.Style.Axis]
		values := l.Series.Values
		switch l.Style.Kind {
		case vm.StyleStack:
			values = stacked[i].top
			fillBetween(img, plot, sc, n, stacked[i].base, values, l.Style.Color)
		case vm.StyleArea:
			fillBetween(img, plot, sc, n, nil, values, l.Style.Color)
		}
		polyline(img, plot, sc, n, values, l.Style)
	}

	rectOutline(img, plot, frame)
	for i, l := range lines {
		y := bottom + margin/2 + i*legendRow
		if y+swatchSize > h {
			break
		}
		fill(img, image.Rect(margin, y, margin+swatchSize, y+swatchSize), l.Style.Color)
	}

	meta := map[string]string{
		"start":        opts.Range.Start.UTC().Format(time.RFC3339),
		"end":          opts.Range.End.UTC().Format(time.RFC3339),
		"step":         opts.Range.Step.String(),
		"series-count": fmt.Sprintf("%d", len(lines)),
	}
	for i, l := range lines {
		meta[fmt.Sprintf("legend.%d", i)] = l.Style.LegendFor(l.Series)
	}
	return pngimage.New(img, meta)
}

// ---------------------------------------------------------------------------
// Scaling
// ---------------------------------------------------------------------------

type scale struct {
	lo, hi float64
	ok     bool
}

func (s scale) y(v float64, plot image.Rectangle) (int, bool) {
	if !s.ok || math.IsNaN(v) || v < s.lo || v > s.hi {
		return 0, false
	}
	frac := (v - s.lo) / (s.hi - s.lo)
	return plot.Max.Y - 1 - int(math.Round(frac*float64(plot.Dy()-1))), true
}

func (s scale) clampY(v float64, plot image.Rectangle) int {
	v = math.Max(s.lo, math.Min(s.hi, v))
	y, _ := s.y(v, plot)
	return y
}

func x(i, n int, plot image.Rectangle) int {
	if n <= 1 {
		return plot.Min.X
	}
	return plot.Min.X + i*(plot.Dx()-1)/(n-1)
}

type stackedValues struct {
	base, top []float64
}

// stackValues accumulates stack-style lines per axis, in order.
func stackValues(lines []Line) []stackedValues {
	out := make([]stackedValues, len(lines))
	var running [2][]float64
	for i, l := range lines {
		if l.Style.Kind != vm.StyleStack {
			continue
		}
		base := running[l.Style.Axis]
		top := make([]float64, len(l.Series.Values))
		for j, v := range l.Series.Values {
			b := 0.0
			if j < len(base) && !math.IsNaN(base[j]) {
				b = base[j]
			}
			if math.IsNaN(v) {
				top[j] = b
			} else {
				top[j] = b + v
			}
		}
		out[i] = stackedValues{base: base, top: top}
		running[l.Style.Axis] = top
	}
	return out
}

func axisScale(lines []Line, stacked []stackedValues, axis int) scale {
	s := scale{lo: math.Inf(1), hi: math.Inf(-1)}
	for i, l := range lines {
		if l.Style.Axis != axis {
			continue
		}
		values := l.Series.Values
		if l.Style.Kind == vm.StyleStack {
			values = stacked[i].top
		}
		if l.Style.Kind != vm.StyleLine {
			s.lo = math.Min(s.lo, 0)
			s.hi = math.Max(s.hi, 0)
		}
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			s.lo = math.Min(s.lo, v)
			s.hi = math.Max(s.hi, v)
		}
	}
	if math.IsInf(s.lo, 1) {
		return scale{}
	}
	if s.lo == s.hi {
		s.lo--
		s.hi++
	}
	s.ok = true
	return s
}

// ---------------------------------------------------------------------------
// Drawing
// ---------------------------------------------------------------------------

func polyline(img *image.RGBA, plot image.Rectangle, sc scale, n int, values []float64, st Style) {
	prevX, prevY, have := 0, 0, false
	for i := 0; i < n && i < len(values); i++ {
		y, ok := sc.y(values[i], plot)
		if !ok {
			have = false
			continue
		}
		px := x(i, n, plot)
		if have {
			segment(img, prevX, prevY, px, y, st)
		} else {
			dot(img, px, y, st)
		}
		prevX, prevY, have = px, y, true
	}
}

func fillBetween(img *image.RGBA, plot image.Rectangle, sc scale, n int, base, top []float64, c color.NRGBA) {
	if !sc.ok || n == 0 {
		return
	}
	for i := 0; i < n && i < len(top); i++ {
		if math.IsNaN(top[i]) {
			continue
		}
		b := 0.0
		if i < len(base) && !math.IsNaN(base[i]) {
			b = base[i]
		}
		x0 := x(i, n, plot)
		x1 := x0 + 1
		if i+1 < n {
			x1 = x(i+1, n, plot)
		}
		y0, y1 := sc.clampY(top[i], plot), sc.clampY(b, plot)
		if y0 > y1 {
			y0, y1 = y1, y0
		}
		fill(img, image.Rect(x0, y0, x1, y1+1).Intersect(plot), c)
	}
}

// segment draws a Bresenham line with square pens of the style's width.
func segment(img *image.RGBA, x0, y0, x1, y1 int, st Style) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		dot(img, x0, y0, st)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func dot(img *image.RGBA, cx, cy int, st Style) {
	half := (st.Width - 1) / 2
	r := image.Rect(cx-half, cy-half, cx-half+st.Width, cy-half+st.Width)
	fill(img, r, st.Color)
}

func fill(img *image.RGBA, r image.Rectangle, c color.NRGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{c}, image.Point{}, draw.Over)
}

func hline(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	for px := x0; px <= x1; px++ {
		img.SetRGBA(px, y, c)
	}
}

func rectOutline(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	hline(img, r.Min.X, r.Max.X-1, r.Min.Y, c)
	hline(img, r.Min.X, r.Max.X-1, r.Max.Y-1, c)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, c)
		img.SetRGBA(r.Max.X-1, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
