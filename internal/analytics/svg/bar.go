package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Bars draws vertical bars for up to two series on one shared scale. Each
// label gets one bar per non-empty series; ValueLabels annotate series A.
func Bars(width, height int, seriesA, seriesB []float64, labels []string, opts BarOpts) (template.HTML, error) {
	if err := checkBarInput(seriesA, seriesB, labels, opts.ValueLabels); err != nil {
		return "", err
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	pad := opts.Padding
	if pad <= 0 {
		pad = DefaultPadding
	}
	ticks := opts.TickCount
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	ink := fallback(opts.AxisColor, "#475569")
	rule := fallback(opts.GridColor, "#cbd5f5")

	var series []barSeries
	if len(seriesA) > 0 {
		series = append(series, barSeries{
			name:      fallback(opts.SeriesALabel, "Série A"),
			color:     fallback(opts.ColorA, "#0ea5e9"),
			values:    seriesA,
			annotated: len(opts.ValueLabels) > 0,
		})
	}
	if len(seriesB) > 0 {
		series = append(series, barSeries{
			name:   fallback(opts.SeriesBLabel, "Série B"),
			color:  fallback(opts.ColorB, "#f97316"),
			values: seriesB,
		})
	}

	plot := barPlot{
		left:   pad,
		top:    pad,
		width:  float64(width) - 2*pad,
		height: float64(height) - 2*pad,
		slots:  len(series),
		count:  len(labels),
	}
	if plot.width <= 0 || plot.height <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}
	lo, hi := 0.0, 0.0
	for _, s := range series {
		sMin, sMax := bounds(s.values)
		lo, hi = math.Min(lo, sMin), math.Max(hi, sMax)
	}
	if almostEqual(lo, hi) {
		hi = lo + 1
	}
	plot.min = lo
	plot.scale = plot.height / (hi - lo)

	titleID := makeID(opts.Title, "bar-title")
	descID := makeID(opts.Title, "bar-desc")

	var out strings.Builder
	fmt.Fprintf(&out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`, width, height, titleID, descID)
	fmt.Fprintf(&out, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(opts.Title, "Histogramme")))
	fmt.Fprintf(&out, `<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(fallback(opts.Description, "Valeurs par libellé")))

	for i := 0; i <= ticks; i++ {
		v := lo + (hi-lo)*float64(i)/float64(ticks)
		y := plot.y(v)
		fmt.Fprintf(&out, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`,
			plot.left, y, plot.left+plot.width, y, rule)
		fmt.Fprintf(&out, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`,
			plot.left-6, y+4, ink, template.HTMLEscapeString(formatTick(v)))
	}

	baseline := plot.y(0)
	fmt.Fprintf(&out, `<g stroke="%s" aria-hidden="true">`, ink)
	fmt.Fprintf(&out, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, plot.left, plot.top, plot.left, plot.top+plot.height)
	fmt.Fprintf(&out, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, plot.left, baseline, plot.left+plot.width, baseline)
	out.WriteString("</g>")

	bw := plot.barWidth()
	for i, label := range labels {
		for k, s := range series {
			x := plot.barX(i, k)
			top, h := plot.span(s.values[i])
			fmt.Fprintf(&out, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" aria-label="%s %s"></rect>`,
				x, top, bw, h, s.color, template.HTMLEscapeString(s.name), template.HTMLEscapeString(label))
			if s.annotated {
				fmt.Fprintf(&out, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
					x+bw/2, math.Max(top-4, 10), ink, template.HTMLEscapeString(opts.ValueLabels[i]))
			}
		}
		fmt.Fprintf(&out, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
			plot.groupCenter(i), plot.top+plot.height+14, ink, template.HTMLEscapeString(label))
	}

	if len(series) > 1 || opts.SeriesALabel != "" || opts.SeriesBLabel != "" {
		keyY := math.Max(pad-12, 12)
		keyX := pad
		for _, s := range series {
			fmt.Fprintf(&out, `<rect x="%.2f" y="%.2f" width="10" height="10" fill="%s"></rect>`, keyX, keyY-8, s.color)
			fmt.Fprintf(&out, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="start">%s</text>`,
				keyX+14, keyY, ink, template.HTMLEscapeString(s.name))
			keyX += 90
		}
	}

	out.WriteString("</svg>")
	return template.HTML(out.String()), nil
}

func checkBarInput(a, b []float64, labels, valueLabels []string) error {
	switch {
	case len(a) == 0 && len(b) == 0:
		return fmt.Errorf("svg: bar chart needs at least one series")
	case len(labels) == 0:
		return fmt.Errorf("svg: bar chart needs labels")
	case len(a) > 0 && len(a) != len(labels):
		return fmt.Errorf("svg: %d values in series A for %d labels", len(a), len(labels))
	case len(b) > 0 && len(b) != len(labels):
		return fmt.Errorf("svg: %d values in series B for %d labels", len(b), len(labels))
	case len(valueLabels) > 0 && len(valueLabels) != len(labels):
		return fmt.Errorf("svg: %d value labels for %d labels", len(valueLabels), len(labels))
	}
	return nil
}

type barSeries struct {
	name, color string
	values      []float64
	annotated   bool
}

// barPlot splits the drawing area into one group per label; bars fill 60%
// of a group, split evenly across the series.
type barPlot struct {
	left, top     float64
	width, height float64
	min, scale    float64
	slots, count  int
}

func (p barPlot) group() float64 {
	return p.width / float64(p.count)
}

func (p barPlot) barWidth() float64 {
	return p.group() * 0.6 / float64(p.slots)
}

func (p barPlot) groupCenter(i int) float64 {
	return p.left + (float64(i)+0.5)*p.group()
}

func (p barPlot) barX(i, slot int) float64 {
	return p.left + float64(i)*p.group() + p.group()*0.2 + float64(slot)*p.barWidth()
}

func (p barPlot) y(v float64) float64 {
	return p.top + p.height - (v-p.min)*p.scale
}

// span returns the top edge and height of the bar for v, clipped to the
// plot area.
func (p barPlot) span(v float64) (float64, float64) {
	upper, lower := p.y(v), p.y(0)
	if upper > lower {
		upper, lower = lower, upper
	}
	upper = math.Max(upper, p.top)
	lower = math.Min(lower, p.top+p.height)
	return upper, math.Max(lower-upper, 0)
}
