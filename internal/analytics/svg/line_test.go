package svg

import (
	"strings"
	"testing"
)

func TestLineProducesSVG(t *testing.T) {
	html, err := Line(400, 200, []float64{100, 200, 150}, []string{"2021-01", "2021-02", "2021-03"}, LineOpts{
		Title:       "Revenue",
		Description: "Monthly revenue",
		ShowDots:    true,
	})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if !strings.Contains(output, "<path") {
		t.Fatalf("expected path element in svg")
	}
	if !strings.Contains(output, "aria-labelledby") {
		t.Fatalf("expected accessibility attributes")
	}
	if strings.Contains(output, `data-series="overlay"`) {
		t.Fatalf("overlay drawn without overlay series")
	}
}

func TestLineDrawsOverlayAndLegend(t *testing.T) {
	html, err := Line(400, 200, []float64{100, 200, 300, 600}, []string{"a", "b", "c", "d"}, LineOpts{
		Title:        "Revenue",
		SeriesLabel:  "CA",
		Overlay:      []float64{100, 200, 200, 366.67},
		OverlayLabel: "Moyenne mobile",
	})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	output := string(html)
	if !strings.Contains(output, `data-series="overlay"`) {
		t.Fatalf("expected overlay path")
	}
	if !strings.Contains(output, "Moyenne mobile") {
		t.Fatalf("expected overlay legend")
	}
}

func TestLineRejectsMismatchedOverlay(t *testing.T) {
	_, err := Line(400, 200, []float64{1, 2}, []string{"a", "b"}, LineOpts{Overlay: []float64{1}})
	if err == nil {
		t.Fatalf("expected error for overlay length mismatch")
	}
}

func TestLineThinsLabels(t *testing.T) {
	series := make([]float64, 100)
	labels := make([]string, 100)
	for i := range series {
		series[i] = float64(i)
		labels[i] = "L" + strings.Repeat("x", i%3)
	}
	html, err := Line(720, 240, series, labels, LineOpts{MaxLabels: 10})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	count := strings.Count(string(html), `text-anchor="middle"`)
	if count > 11 {
		t.Fatalf("expected at most 11 x labels, got %d", count)
	}
}
