package chart

import (
	"encoding/hex"
	"image/color"
	"strconv"
	"strings"

	"github.com/chazu/stackviz/pkg/series"
	"github.com/chazu/stackviz/vm"
)

// Palette supplies colors to lines without a color setting, by index.
var Palette = []color.NRGBA{
	{0xff, 0x00, 0x00, 0xff},
	{0x00, 0xff, 0x00, 0xff},
	{0x00, 0x00, 0xff, 0xff},
	{0xff, 0x00, 0xff, 0xff},
	{0xff, 0xff, 0x00, 0xff},
	{0x00, 0xff, 0xff, 0xff},
	{0x80, 0x80, 0x80, 0xff},
}

// Style is the resolved presentation of one line.
type Style struct {
	Color  color.NRGBA
	Width  int
	Kind   string
	Axis   int
	Legend string
}

// StyleFrom resolves the settings of s. index picks the palette color when
// no color is set.
func StyleFrom(s vm.StyleExpr, index int) Style {
	st := Style{
		Color:  Palette[index%len(Palette)],
		Width:  1,
		Kind:   s.Setting(vm.SettingStyle, vm.StyleLine),
		Legend: s.Setting(vm.SettingLegend, ""),
	}
	if c, ok := parseColor(s.Setting(vm.SettingColor, "")); ok {
		st.Color = c
	}
	if a, err := hex.DecodeString(s.Setting(vm.SettingAlpha, "")); err == nil && len(a) == 1 {
		st.Color.A = a[0]
	}
	if w, err := strconv.Atoi(s.Setting(vm.SettingWidth, "")); err == nil && w > 0 {
		st.Width = w
	}
	if s.Setting(vm.SettingAxis, "0") == "1" {
		st.Axis = 1
	}
	return st
}

// parseColor accepts RRGGBB or AARRGGBB.
func parseColor(s string) (color.NRGBA, bool) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return color.NRGBA{}, false
	}
	switch len(b) {
	case 3:
		return color.NRGBA{b[0], b[1], b[2], 0xff}, true
	case 4:
		return color.NRGBA{b[1], b[2], b[3], b[0]}, true
	}
	return color.NRGBA{}, false
}

// LegendFor expands $key references in the legend with the series' tag
// values. An empty legend falls back to the series label.
func (s Style) LegendFor(ts series.TimeSeries) string {
	if s.Legend == "" {
		return ts.Label
	}
	if !strings.Contains(s.Legend, "$") {
		return s.Legend
	}
	return expandTags(s.Legend, ts.Tags)
}

func expandTags(legend string, tags map[string]string) string {
	var b strings.Builder
	for i := 0; i < len(legend); {
		if legend[i] != '$' {
			b.WriteByte(legend[i])
			i++
			continue
		}
		j := i + 1
		for j < len(legend) && isTagChar(legend[j]) {
			j++
		}
		if j == i+1 {
			b.WriteByte('$')
			i++
			continue
		}
		if v, ok := tags[legend[i+1:j]]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(legend[i:j])
		}
		i = j
	}
	return b.String()
}

func isTagChar(c byte) bool {
	return c == '_' || c == '.' || c == '-' ||
		c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
