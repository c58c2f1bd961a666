package chart

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ajstarks/svgo"
)

const svgFont = "font-family:monospace"

// SVG renders c as a standalone SVG document.
func SVG(w io.Writer, c Chart, width, height int) error {
	if err := c.validate(); err != nil {
		return err
	}
	switch c.Kind {
	case Doughnut, Bar, Line:
	default:
		return fmt.Errorf("unsupported chart kind %d", c.Kind)
	}

	f := newFrame(c, width, height)

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Text(width/2, int(titleY)+4, c.Title,
		fmt.Sprintf("fill:%s;font-size:15px;%s;font-weight:bold;text-anchor:middle", css(colorText), svgFont))

	switch c.Kind {
	case Doughnut:
		drawDoughnutSVG(canvas, c, f)
	case Bar:
		drawAxesSVG(canvas, c, f)
		drawBarsSVG(canvas, c, f)
	case Line:
		drawAxesSVG(canvas, c, f)
		drawLinesSVG(canvas, c, f)
	}

	for _, e := range legendLayout(c, f) {
		x, y := int(e.x), int(e.y)
		canvas.Rect(x, y-int(legendSwatch/2), int(legendSwatch), int(legendSwatch), fmt.Sprintf("fill:%s", css(e.color)))
		canvas.Text(x+int(legendSwatch)+6, y+4, e.text, fmt.Sprintf("fill:%s;font-size:12px;%s", css(colorSubtle), svgFont))
	}

	canvas.End()
	return nil
}

func drawAxesSVG(canvas *svg.SVG, c Chart, f frame) {
	for k := 0; k <= gridLines; k++ {
		v, y := f.tick(k)
		canvas.Line(int(f.left), int(y), int(f.right), int(y), fmt.Sprintf("stroke:%s;stroke-width:1", css(colorGrid)))
		canvas.Text(int(f.left)-8, int(y)+4, formatValue(v),
			fmt.Sprintf("fill:%s;font-size:11px;%s;text-anchor:end", css(colorSubtle), svgFont))
	}

	step := labelStep(c, f)
	for i, l := range c.Labels {
		if i%step != 0 {
			continue
		}
		canvas.Text(int(f.center(i, len(c.Labels))), int(f.bottom)+18, truncate(l, 18),
			fmt.Sprintf("fill:%s;font-size:11px;%s;text-anchor:middle", css(colorSubtle), svgFont))
	}
}

func drawBarsSVG(canvas *svg.SVG, c Chart, f frame) {
	n := len(c.Labels)
	for s, series := range c.Series {
		for i, v := range series.Values {
			if v <= 0 {
				continue
			}
			x, y, w, h := f.bar(i, n, s, len(c.Series), v)
			canvas.Rect(int(x), int(y), int(math.Max(w, 1)), int(math.Max(h, 1)), fmt.Sprintf("fill:%s", css(barColor(c, s, i))))
		}
	}
}

func drawLinesSVG(canvas *svg.SVG, c Chart, f frame) {
	n := len(c.Labels)
	for _, series := range c.Series {
		xs := make([]int, n)
		ys := make([]int, n)
		for i, v := range series.Values {
			xs[i] = int(f.center(i, n))
			ys[i] = int(f.y(v))
		}
		canvas.Polyline(xs, ys, fmt.Sprintf("fill:none;stroke:%s;stroke-width:2", css(series.Color)))
		for i := range xs {
			canvas.Circle(xs[i], ys[i], 3, fmt.Sprintf("fill:%s", css(series.Color)))
		}
	}
}

func drawDoughnutSVG(canvas *svg.SVG, c Chart, f frame) {
	cx, cy, outer, inner := f.doughnut()
	segs := segments(c)

	switch {
	case len(segs) == 0:
		canvas.Circle(int(cx), int(cy), int(outer), fmt.Sprintf("fill:%s", css(colorGrid)))
	case len(segs) == 1:
		// A full-circle arc has coincident endpoints and would not render.
		canvas.Circle(int(cx), int(cy), int(outer), fmt.Sprintf("fill:%s", css(c.sliceColor(segs[0].index))))
	default:
		for _, s := range segs {
			canvas.Path(sectorPath(cx, cy, outer, s), fmt.Sprintf("fill:%s", css(c.sliceColor(s.index))))
		}
	}

	canvas.Circle(int(cx), int(cy), int(inner), fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Text(int(cx), int(cy)+5, formatValue(c.total()),
		fmt.Sprintf("fill:%s;font-size:16px;%s;font-weight:bold;text-anchor:middle", css(colorText), svgFont))
}

// sectorPath is the SVG path data for a pie sector from the center.
func sectorPath(cx, cy, r float64, s slice) string {
	x0, y0 := cx+r*math.Cos(s.start), cy+r*math.Sin(s.start)
	x1, y1 := cx+r*math.Cos(s.end), cy+r*math.Sin(s.end)
	large := 0
	if s.end-s.start > math.Pi {
		large = 1
	}
	var b strings.Builder
	fmt.Fprintf(&b, "M%.1f,%.1f L%.1f,%.1f A%.1f,%.1f 0 %d 1 %.1f,%.1f Z", cx, cy, x0, y0, r, r, large, x1, y1)
	return b.String()
}
