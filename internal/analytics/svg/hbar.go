package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// HBars renders one horizontal bar per label, in input order. Negative values
// extend left of the zero line in the negative colour. The height grows with
// the number of rows.
func HBars(width int, values []float64, labels []string, opts HBarOpts) (template.HTML, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("svg: values required")
	}
	if len(values) != len(labels) {
		return "", fmt.Errorf("svg: labels length must match values")
	}
	if len(opts.ValueLabels) > 0 && len(opts.ValueLabels) != len(values) {
		return "", fmt.Errorf("svg: value labels length must match values")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	rowHeight := opts.RowHeight
	if rowHeight <= 0 {
		rowHeight = DefaultRowHeight
	}
	labelWidth := opts.LabelWidth
	if labelWidth <= 0 {
		labelWidth = float64(width) * 0.32
	}
	positive := fallback(opts.PositiveColor, "#2563eb")
	negative := fallback(opts.NegativeColor, "#ef4444")
	textColor := fallback(opts.TextColor, "#475569")

	const valueGutter = 64.0
	trackWidth := float64(width) - labelWidth - valueGutter - DefaultPadding/2
	if trackWidth <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}
	height := int(math.Ceil(rowHeight*float64(len(values)) + DefaultPadding))

	minVal, maxVal := bounds(values)
	if minVal > 0 {
		minVal = 0
	}
	if maxVal < 0 {
		maxVal = 0
	}
	if almostEqual(maxVal, minVal) {
		maxVal = minVal + 1
	}
	scale := trackWidth / (maxVal - minVal)
	zeroX := labelWidth + (0-minVal)*scale

	titleID := makeID(opts.Title, "hbar-title")
	descID := makeID(opts.Title, "hbar-desc")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID))
	b.WriteString(fmt.Sprintf("<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Ranking"))))
	b.WriteString(fmt.Sprintf("<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Horizontal bar ranking"))))

	top := DefaultPadding / 2
	barHeight := rowHeight * 0.62
	for i, value := range values {
		rowY := top + float64(i)*rowHeight
		barY := rowY + (rowHeight-barHeight)/2
		w := math.Abs(value * scale)
		x := zeroX
		fill := positive
		if value < 0 {
			x = zeroX - w
			fill = negative
		}
		label := labels[i]
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"11\" text-anchor=\"end\">%s</text>", labelWidth-8, barY+barHeight/2+4, textColor, template.HTMLEscapeString(label)))
		b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" rx=\"3\" fill=\"%s\" aria-label=\"%s\"></rect>", x, barY, w, barHeight, fill, template.HTMLEscapeString(label)))
		if len(opts.ValueLabels) > 0 {
			b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"start\">%s</text>", math.Max(x+w, zeroX)+6, barY+barHeight/2+4, textColor, template.HTMLEscapeString(opts.ValueLabels[i])))
		}
	}
	if minVal < 0 {
		b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"1\" aria-hidden=\"true\"></line>", zeroX, top, zeroX, top+rowHeight*float64(len(values)), textColor))
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
