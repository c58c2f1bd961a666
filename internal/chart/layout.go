package chart

import (
	"image/color"
	"math"
	"strconv"
	"unicode/utf8"
)

const (
	titleY       = 24.0
	plotTop      = 50.0
	plotLeft     = 56.0
	plotRight    = 24.0
	plotBottom   = 64.0
	legendGap    = 20.0
	legendSwatch = 10.0
	gridLines    = 5
)

// frame maps chart values onto image coordinates. PNG and SVG renderers share
// it so both outputs have the same geometry.
type frame struct {
	w, h   float64
	left   float64
	top    float64
	right  float64
	bottom float64
	max    float64 // value at the top grid line
}

func newFrame(c Chart, width, height int) frame {
	return frame{
		w:      float64(width),
		h:      float64(height),
		left:   plotLeft,
		top:    plotTop,
		right:  float64(width) - plotRight,
		bottom: float64(height) - plotBottom,
		max:    niceMax(c.maxValue()),
	}
}

// niceMax rounds v up so that gridLines evenly spaced integer ticks cover it.
func niceMax(v float64) float64 {
	step := math.Ceil(v / gridLines)
	if step < 1 {
		step = 1
	}
	return step * gridLines
}

// y returns the vertical position of value v.
func (f frame) y(v float64) float64 {
	if v < 0 {
		v = 0
	}
	return f.bottom - (v/f.max)*(f.bottom-f.top)
}

// groupWidth is the horizontal space allotted to each label.
func (f frame) groupWidth(n int) float64 {
	return (f.right - f.left) / float64(n)
}

// center returns the horizontal center of label i out of n.
func (f frame) center(i, n int) float64 {
	return f.left + f.groupWidth(n)*(float64(i)+0.5)
}

// bar returns the rectangle for series s of label i.
func (f frame) bar(i, n, s, series int, v float64) (x, y, w, h float64) {
	gw := f.groupWidth(n)
	w = gw * 0.7 / float64(series)
	x = f.left + gw*float64(i) + gw*0.15 + w*float64(s)
	y = f.y(v)
	h = f.bottom - y
	return x, y, w, h
}

// tick returns the value and position of grid line k (0 = baseline).
func (f frame) tick(k int) (float64, float64) {
	v := f.max / gridLines * float64(k)
	return v, f.y(v)
}

// legendY is the baseline of the legend row.
func (f frame) legendY() float64 {
	return f.h - legendGap
}

// doughnut returns the center and outer/inner radii of a doughnut chart,
// leaving room for the legend on the right.
func (f frame) doughnut() (cx, cy, outer, inner float64) {
	cx = f.w * 0.35
	cy = (f.top + f.h - legendGap) / 2
	outer = math.Min(f.w*0.3, (f.h-f.top-legendGap)/2)
	inner = outer * 0.55
	return cx, cy, outer, inner
}

// slice describes one doughnut segment in radians, starting at 12 o'clock.
type slice struct {
	index      int
	start, end float64
}

func segments(c Chart) []slice {
	total := c.total()
	if total == 0 {
		return nil
	}
	var out []slice
	angle := -math.Pi / 2
	for i, v := range c.Series[0].Values {
		if v <= 0 {
			continue
		}
		sweep := v / total * 2 * math.Pi
		out = append(out, slice{index: i, start: angle, end: angle + sweep})
		angle += sweep
	}
	return out
}

// legendEntry is one label and color, positioned by legendLayout.
type legendEntry struct {
	text  string
	color color.RGBA
	x, y  float64
}

// legendLayout places legend entries. Bar and line charts list series in a
// row under the plot; doughnuts list labels with counts in a column.
func legendLayout(c Chart, f frame) []legendEntry {
	var out []legendEntry
	if c.Kind == Doughnut {
		cx, cy, outer, _ := f.doughnut()
		x := cx + outer + 40
		y := cy - float64(len(c.Labels)-1)*11
		for i, l := range c.Labels {
			out = append(out, legendEntry{
				text:  l + ": " + formatValue(c.Series[0].Values[i]),
				color: c.sliceColor(i),
				x:     x,
				y:     y + float64(i)*22,
			})
		}
		return out
	}

	x := f.left
	for _, s := range c.Series {
		out = append(out, legendEntry{
			text:  s.Name,
			color: s.Color,
			x:     x,
			y:     f.legendY(),
		})
		x += legendSwatch + 12 + float64(utf8.RuneCountInString(s.Name))*7
	}
	return out
}

// labelStep thins out x-axis labels so they do not overlap at 7px per glyph.
func labelStep(c Chart, f frame) int {
	longest := 1
	for _, l := range c.Labels {
		if n := utf8.RuneCountInString(l); n > longest {
			longest = n
		}
	}
	need := float64(longest*7 + 6)
	gw := f.groupWidth(len(c.Labels))
	if gw >= need {
		return 1
	}
	return int(math.Ceil(need / gw))
}

// formatValue prints whole numbers without a decimal point.
func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
