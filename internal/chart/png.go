package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"
)

// PNG renders c as a PNG image of the given size.
func PNG(w io.Writer, c Chart, width, height int) error {
	if err := c.validate(); err != nil {
		return err
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	f := newFrame(c, width, height)

	dc.SetColor(colorText)
	dc.DrawStringAnchored(c.Title, f.w/2, titleY, 0.5, 0.5)

	switch c.Kind {
	case Doughnut:
		drawDoughnutPNG(dc, c, f)
	case Bar:
		drawAxesPNG(dc, c, f)
		drawBarsPNG(dc, c, f)
	case Line:
		drawAxesPNG(dc, c, f)
		drawLinesPNG(dc, c, f)
	default:
		return fmt.Errorf("unsupported chart kind %d", c.Kind)
	}

	for _, e := range legendLayout(c, f) {
		drawLegendRowPNG(dc, e)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// PNGBytes renders c at the default size.
func PNGBytes(c Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := PNG(&buf, c, DefaultWidth, DefaultHeight); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawAxesPNG(dc *gg.Context, c Chart, f frame) {
	dc.SetLineWidth(1)
	for k := 0; k <= gridLines; k++ {
		v, y := f.tick(k)
		dc.SetColor(colorGrid)
		dc.DrawLine(f.left, y, f.right, y)
		dc.Stroke()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(formatValue(v), f.left-8, y, 1, 0.5)
	}

	step := labelStep(c, f)
	dc.SetColor(colorSubtle)
	for i, l := range c.Labels {
		if i%step != 0 {
			continue
		}
		dc.DrawStringAnchored(truncate(l, 18), f.center(i, len(c.Labels)), f.bottom+14, 0.5, 0.5)
	}
}

func drawBarsPNG(dc *gg.Context, c Chart, f frame) {
	n := len(c.Labels)
	for s, series := range c.Series {
		for i, v := range series.Values {
			if v <= 0 {
				continue
			}
			x, y, w, h := f.bar(i, n, s, len(c.Series), v)
			dc.SetColor(barColor(c, s, i))
			dc.DrawRectangle(x, y, w, h)
			dc.Fill()
		}
	}
}

func drawLinesPNG(dc *gg.Context, c Chart, f frame) {
	n := len(c.Labels)
	dc.SetLineWidth(2)
	for _, series := range c.Series {
		dc.SetColor(series.Color)
		for i, v := range series.Values {
			if i == 0 {
				dc.MoveTo(f.center(i, n), f.y(v))
				continue
			}
			dc.LineTo(f.center(i, n), f.y(v))
		}
		dc.Stroke()
		for i, v := range series.Values {
			dc.DrawCircle(f.center(i, n), f.y(v), 3)
			dc.Fill()
		}
	}
}

func drawDoughnutPNG(dc *gg.Context, c Chart, f frame) {
	cx, cy, outer, inner := f.doughnut()
	segs := segments(c)
	if len(segs) == 0 {
		dc.SetColor(colorGrid)
		dc.DrawCircle(cx, cy, outer)
		dc.Fill()
	}
	for _, s := range segs {
		dc.SetColor(c.sliceColor(s.index))
		dc.MoveTo(cx, cy)
		dc.DrawArc(cx, cy, outer, s.start, s.end)
		dc.ClosePath()
		dc.Fill()
	}
	dc.SetColor(colorBackdrop)
	dc.DrawCircle(cx, cy, inner)
	dc.Fill()

	dc.SetColor(colorText)
	dc.DrawStringAnchored(formatValue(c.total()), cx, cy, 0.5, 0.5)
}

func drawLegendRowPNG(dc *gg.Context, e legendEntry) {
	dc.SetColor(e.color)
	dc.DrawRectangle(e.x, e.y-legendSwatch/2, legendSwatch, legendSwatch)
	dc.Fill()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(e.text, e.x+legendSwatch+6, e.y, 0, 0.5)
}

// barColor uses per-label colors for single-series charts that define them.
func barColor(c Chart, s, i int) color.RGBA {
	if len(c.Series) == 1 && len(c.Colors) > 0 {
		return c.sliceColor(i)
	}
	return c.Series[s].Color
}

// truncate shortens s to max runes. basicfont has no ellipsis glyph.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
