// Package ui maps dashboard snapshots onto card and chart view models.
package ui

import (
	"html/template"

	"github.com/superstore-bi/dashboard/internal/analytics/svg"
)

// Charts abstracts SVG rendering for the dashboard views.
type Charts interface {
	Line(width, height int, series []float64, labels []string, opts svg.LineOpts) (template.HTML, error)
	Bars(width, height int, seriesA, seriesB []float64, labels []string, opts svg.BarOpts) (template.HTML, error)
	HBars(width int, values []float64, labels []string, opts svg.HBarOpts) (template.HTML, error)
	Donut(width, height int, values []float64, labels []string, opts svg.DonutOpts) (template.HTML, error)
}

// SVGCharts renders with the svg package.
type SVGCharts struct{}

func (SVGCharts) Line(width, height int, series []float64, labels []string, opts svg.LineOpts) (template.HTML, error) {
	return svg.Line(width, height, series, labels, opts)
}

func (SVGCharts) Bars(width, height int, seriesA, seriesB []float64, labels []string, opts svg.BarOpts) (template.HTML, error) {
	return svg.Bars(width, height, seriesA, seriesB, labels, opts)
}

func (SVGCharts) HBars(width int, values []float64, labels []string, opts svg.HBarOpts) (template.HTML, error) {
	return svg.HBars(width, values, labels, opts)
}

func (SVGCharts) Donut(width, height int, values []float64, labels []string, opts svg.DonutOpts) (template.HTML, error) {
	return svg.Donut(width, height, values, labels, opts)
}

// Tone drives the colour of a card or insight.
type Tone string

// Tones understood by the stylesheet.
const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
	ToneNeutral  Tone = "neutral"
	ToneInfo     Tone = "info"
)

// Link is a navigation or switch entry.
type Link struct {
	Label  string
	Href   string
	Active bool
}
