package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Donut renders a ring chart with one slice per label, in input order, and a
// legend with each slice's share. Negative values count as zero.
func Donut(width, height int, values []float64, labels []string, opts DonutOpts) (template.HTML, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("svg: values required")
	}
	if len(values) != len(labels) {
		return "", fmt.Errorf("svg: labels length must match values")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	palette := opts.Palette
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	thickness := opts.Thickness
	if thickness <= 0 || thickness >= 1 {
		thickness = DefaultThickness
	}
	textColor := fallback(opts.TextColor, "#475569")

	total := 0.0
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	if total <= 0 {
		return "", fmt.Errorf("svg: total must be positive")
	}

	outer := math.Min(float64(width)*0.4, float64(height)) / 2
	outer -= DefaultPadding / 2
	if outer <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}
	stroke := outer * thickness
	radius := outer - stroke/2
	circumference := 2 * math.Pi * radius
	cx := DefaultPadding/2 + outer
	cy := float64(height) / 2

	titleID := makeID(opts.Title, "donut-title")
	descID := makeID(opts.Title, "donut-desc")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID))
	b.WriteString(fmt.Sprintf("<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Donut chart"))))
	b.WriteString(fmt.Sprintf("<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Share breakdown"))))

	b.WriteString(fmt.Sprintf("<g transform=\"rotate(-90 %.2f %.2f)\">", cx, cy))
	offset := 0.0
	for i, v := range values {
		if v <= 0 {
			continue
		}
		length := circumference * v / total
		color := palette[i%len(palette)]
		b.WriteString(fmt.Sprintf("<circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\" fill=\"none\" stroke=\"%s\" stroke-width=\"%.2f\" stroke-dasharray=\"%.2f %.2f\" stroke-dashoffset=\"%.2f\"><title>%s</title></circle>",
			cx, cy, radius, color, stroke, length, circumference-length, -offset,
			template.HTMLEscapeString(fmt.Sprintf("%s: %.1f%%", labels[i], v/total*100))))
		offset += length
	}
	b.WriteString("</g>")

	legendX := cx + outer + DefaultPadding
	rowHeight := math.Min(20, (float64(height)-DefaultPadding)/float64(len(values)))
	legendY := cy - rowHeight*float64(len(values))/2 + rowHeight/2
	for i, label := range labels {
		y := legendY + float64(i)*rowHeight
		share := math.Max(values[i], 0) / total * 100
		b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" rx=\"2\" fill=\"%s\"></rect>", legendX, y-8, palette[i%len(palette)]))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"11\">%s <tspan font-weight=\"600\">%.1f%%</tspan></text>", legendX+16, y+1, textColor, template.HTMLEscapeString(label), share))
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
