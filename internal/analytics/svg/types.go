package svg

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	SeriesLabel string
	StrokeColor string
	FillColor   string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	TickCount   int
	// MaxLabels caps the x-axis labels; intermediate labels are skipped.
	MaxLabels int
	// Overlay is drawn as a dashed second line on the same scale.
	Overlay      []float64
	OverlayLabel string
	OverlayColor string
}

// BarOpts customises the bar chart renderer.
type BarOpts struct {
	Title        string
	Description  string
	SeriesALabel string
	SeriesBLabel string
	ColorA       string
	ColorB       string
	AxisColor    string
	GridColor    string
	Padding      float64
	TickCount    int
	// ValueLabels, when set, are printed above each bar of series A.
	ValueLabels []string
}

// HBarOpts customises the horizontal bar renderer.
type HBarOpts struct {
	Title         string
	Description   string
	PositiveColor string
	NegativeColor string
	TextColor     string
	LabelWidth    float64
	RowHeight     float64
	// ValueLabels, when set, are printed at the end of each bar.
	ValueLabels []string
}

// DonutOpts customises the donut renderer.
type DonutOpts struct {
	Title       string
	Description string
	Palette     []string
	TextColor   string
	// Thickness is the ring width as a fraction of the radius.
	Thickness float64
}

// Defaults for the dashboard charts.
const (
	DefaultWidth     = 720
	DefaultHeight    = 240
	DefaultPadding   = 24.0
	DefaultTicks     = 6
	DefaultMaxLabels = 12
	DefaultRowHeight = 26.0
	DefaultThickness = 0.38
)

// DefaultPalette colours categorical series.
var DefaultPalette = []string{"#2563eb", "#0ea5e9", "#10b981", "#f59e0b", "#ef4444", "#8b5cf6", "#ec4899", "#64748b"}
