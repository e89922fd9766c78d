package ui

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/superstore-bi/dashboard/internal/analytics/svg"
	"github.com/superstore-bi/dashboard/internal/format"
	"github.com/superstore-bi/dashboard/internal/kpi"
)

// SMAWindow is the trailing window of the revenue smoothing overlay.
const SMAWindow = 3

const (
	colorRevenue  = "#1199fa"
	colorSuccess  = "#00d893"
	colorDanger   = "#ff4d52"
	colorOverlay  = "#f59e0b"
	comparisonMax = 12
)

// TrailingSMA smooths values with a trailing window. The first window-1
// entries are copied unchanged.
func TrailingSMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	for i, v := range values {
		if i < window-1 {
			out[i] = v
			continue
		}
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(window)
	}
	return out
}

// RevenueSMA is the three point trailing average of revenue.
func RevenueSMA(points []kpi.TemporalPoint) []float64 {
	revenue := make([]float64, len(points))
	for i, p := range points {
		revenue[i] = p.Revenue
	}
	return TrailingSMA(revenue, SMAWindow)
}

// TemporalRow is one bucket of the time series table.
type TemporalRow struct {
	Period  string
	Revenue string
	SMA     string
	Profit  string
	Orders  string
}

// TemporalView is the time series panel.
type TemporalView struct {
	Title         string
	Switches      []Link
	Chart         template.HTML
	Comparison    template.HTML
	Rows          []TemporalRow
	Empty         bool
	LatestPeriod  string
	LatestGrowth  string
	LatestGrowing bool
}

func buildTemporal(points []kpi.TemporalPoint, comparison kpi.ComparisonReport, switches []Link, f *format.Formatter, charts Charts) (TemporalView, error) {
	view := TemporalView{
		Title:         "Évolution des Performances",
		Switches:      switches,
		Empty:         len(points) == 0,
		LatestPeriod:  comparison.Latest.Period,
		LatestGrowth:  format.SignedPercent(comparison.Latest.EvolutionPct),
		LatestGrowing: Growing(comparison.Latest.EvolutionPct),
	}
	if !view.Empty {
		sma := RevenueSMA(points)
		labels := make([]string, len(points))
		revenue := make([]float64, len(points))
		view.Rows = make([]TemporalRow, len(points))
		for i, p := range points {
			labels[i] = p.Period
			revenue[i] = p.Revenue
			view.Rows[i] = TemporalRow{
				Period:  p.Period,
				Revenue: f.Currency(p.Revenue),
				SMA:     f.Currency(sma[i]),
				Profit:  f.Currency(p.Profit),
				Orders:  f.Count(float64(p.OrderCount)),
			}
		}
		chart, err := charts.Line(svg.DefaultWidth, 280, revenue, labels, svg.LineOpts{
			Title:        "Évolution du CA",
			Description:  "Chiffre d'affaires par période avec moyenne mobile sur trois périodes",
			SeriesLabel:  "CA",
			StrokeColor:  colorRevenue,
			FillColor:    "rgba(17,153,250,0.10)",
			ShowDots:     len(points) <= 36,
			Overlay:      sma,
			OverlayLabel: "Trend (SMA)",
			OverlayColor: colorOverlay,
		})
		if err != nil {
			return TemporalView{}, fmt.Errorf("temporal chart: %w", err)
		}
		view.Chart = chart
	}

	series := comparison.Series
	if len(series) > comparisonMax {
		series = series[len(series)-comparisonMax:]
	}
	if len(series) > 0 {
		labels := make([]string, len(series))
		current := make([]float64, len(series))
		prior := make([]float64, len(series))
		for i, c := range series {
			labels[i] = c.Period
			current[i] = c.Revenue
			prior[i] = c.PriorRevenue
		}
		chart, err := charts.Bars(svg.DefaultWidth, 240, current, prior, labels, svg.BarOpts{
			Title:        "Comparaison mensuelle",
			Description:  "CA du mois comparé au mois précédent",
			SeriesALabel: "CA",
			SeriesBLabel: "CA préc.",
			ColorA:       colorRevenue,
			ColorB:       "#94a3b8",
			Padding:      48,
		})
		if err != nil {
			return TemporalView{}, fmt.Errorf("comparison chart: %w", err)
		}
		view.Comparison = chart
	}
	return view, nil
}

// ProductRow is one ranked product.
type ProductRow struct {
	Rank     int
	Product  string
	Category string
	Revenue  string
	Quantity string
	Profit   string
	Negative bool
}

// ProductView is the product ranking tab.
type ProductView struct {
	Criteria      []Link
	Title         string
	Chart         template.HTML
	Rows          []ProductRow
	Empty         bool
	ShowMargins   bool
	TopMargins    template.HTML
	BottomMargins template.HTML
}

func buildProducts(top []kpi.TopProduct, margins kpi.MarginReport, criterion kpi.Criterion, limit int, criteria []Link, f *format.Formatter, charts Charts) (ProductView, error) {
	view := ProductView{
		Criteria:    criteria,
		Title:       fmt.Sprintf("TOP %d PERFORMERS (%s)", limit, strings.ToUpper(criterion.Label())),
		Empty:       len(top) == 0,
		ShowMargins: len(margins.Top) > 0 && len(margins.Bottom) > 0,
	}
	if !view.Empty {
		values := make([]float64, len(top))
		labels := make([]string, len(top))
		valueLabels := make([]string, len(top))
		view.Rows = make([]ProductRow, len(top))
		for i, p := range top {
			values[i] = criterion.Value(p)
			labels[i] = format.Truncate(p.Product, 32)
			if criterion == kpi.CriterionQuantity {
				valueLabels[i] = f.Count(values[i])
			} else {
				valueLabels[i] = format.Compact(values[i])
			}
			view.Rows[i] = ProductRow{
				Rank:     i + 1,
				Product:  p.Product,
				Category: p.Category,
				Revenue:  f.Currency(p.Revenue),
				Quantity: f.Count(float64(p.Quantity)),
				Profit:   f.Currency(p.Profit),
				Negative: p.Profit < 0,
			}
		}
		chart, err := charts.HBars(svg.DefaultWidth, values, labels, svg.HBarOpts{
			Title:         view.Title,
			Description:   "Classement des produits selon " + criterion.Label(),
			PositiveColor: colorRevenue,
			NegativeColor: colorDanger,
			LabelWidth:    240,
			ValueLabels:   valueLabels,
		})
		if err != nil {
			return ProductView{}, fmt.Errorf("ranking chart: %w", err)
		}
		view.Chart = chart
	}

	if view.ShowMargins {
		topChart, err := marginChart(charts, "TOP MARGES", margins.Top, colorSuccess)
		if err != nil {
			return ProductView{}, err
		}
		bottomChart, err := marginChart(charts, "FAIBLES MARGES", margins.Bottom, colorDanger)
		if err != nil {
			return ProductView{}, err
		}
		view.TopMargins = topChart
		view.BottomMargins = bottomChart
	}
	return view, nil
}

func marginChart(charts Charts, title string, rows []kpi.ProductMargin, color string) (template.HTML, error) {
	values := make([]float64, len(rows))
	labels := make([]string, len(rows))
	valueLabels := make([]string, len(rows))
	for i, m := range rows {
		values[i] = m.MarginPct
		labels[i] = format.Truncate(m.Product, 24)
		valueLabels[i] = format.Percent(m.MarginPct)
	}
	chart, err := charts.HBars(360, values, labels, svg.HBarOpts{
		Title:         title,
		Description:   "Marge en pourcentage par produit",
		PositiveColor: color,
		NegativeColor: color,
		LabelWidth:    150,
		ValueLabels:   valueLabels,
	})
	if err != nil {
		return "", fmt.Errorf("margin chart %q: %w", title, err)
	}
	return chart, nil
}

// CategoryRow is one category of the breakdown table.
type CategoryRow struct {
	Category string
	Revenue  string
	Profit   string
	Orders   string
	Margin   string
}

// CategoryView is the category breakdown panel.
type CategoryView struct {
	Title string
	Chart template.HTML
	Rows  []CategoryRow
	Empty bool
}

func buildCategories(rows []kpi.CategoryPerformance, f *format.Formatter, charts Charts) (CategoryView, error) {
	view := CategoryView{Title: "RÉPARTITION PAR CATÉGORIE"}
	values := make([]float64, len(rows))
	labels := make([]string, len(rows))
	view.Rows = make([]CategoryRow, len(rows))
	for i, c := range rows {
		values[i] = c.Revenue
		labels[i] = c.Category
		view.Rows[i] = CategoryRow{
			Category: c.Category,
			Revenue:  f.Currency(c.Revenue),
			Profit:   f.Currency(c.Profit),
			Orders:   f.Count(float64(c.OrderCount)),
			Margin:   format.Percent(c.MarginPct),
		}
	}
	if !positiveTotal(values) {
		view.Empty = true
		return view, nil
	}
	chart, err := charts.Donut(480, 240, values, labels, svg.DonutOpts{
		Title:       view.Title,
		Description: "Part du chiffre d'affaires par catégorie",
	})
	if err != nil {
		return CategoryView{}, fmt.Errorf("category chart: %w", err)
	}
	view.Chart = chart
	return view, nil
}

// GeoRow is one region of the geographic table.
type GeoRow struct {
	Region    string
	Revenue   string
	Profit    string
	Customers string
	Orders    string
}

// GeoView is the geographic tab.
type GeoView struct {
	RevenueTitle   string
	RevenueChart   template.HTML
	CustomersTitle string
	CustomersChart template.HTML
	Rows           []GeoRow
	Empty          bool
}

func buildGeo(rows []kpi.GeoPerformance, f *format.Formatter, charts Charts) (GeoView, error) {
	view := GeoView{
		RevenueTitle:   "PERFORMANCE RÉGIONALE (CA)",
		CustomersTitle: "RÉPARTITION CLIENTÈLE",
		Empty:          len(rows) == 0,
	}
	if view.Empty {
		return view, nil
	}
	labels := make([]string, len(rows))
	revenue := make([]float64, len(rows))
	customers := make([]float64, len(rows))
	valueLabels := make([]string, len(rows))
	view.Rows = make([]GeoRow, len(rows))
	for i, g := range rows {
		labels[i] = g.Region
		revenue[i] = g.Revenue
		customers[i] = float64(g.CustomerCount)
		valueLabels[i] = format.Thousands(g.Revenue)
		view.Rows[i] = GeoRow{
			Region:    g.Region,
			Revenue:   f.Currency(g.Revenue),
			Profit:    f.Currency(g.Profit),
			Customers: f.Count(float64(g.CustomerCount)),
			Orders:    f.Count(float64(g.OrderCount)),
		}
	}
	chart, err := charts.Bars(480, 260, revenue, nil, labels, svg.BarOpts{
		Title:       view.RevenueTitle,
		Description: "Chiffre d'affaires par région",
		ColorA:      colorRevenue,
		Padding:     48,
		ValueLabels: valueLabels,
	})
	if err != nil {
		return GeoView{}, fmt.Errorf("geo revenue chart: %w", err)
	}
	view.RevenueChart = chart
	if positiveTotal(customers) {
		donut, err := charts.Donut(480, 260, customers, labels, svg.DonutOpts{
			Title:       view.CustomersTitle,
			Description: "Répartition des clients par région",
		})
		if err != nil {
			return GeoView{}, fmt.Errorf("geo customers chart: %w", err)
		}
		view.CustomersChart = donut
	}
	return view, nil
}

func positiveTotal(values []float64) bool {
	total := 0.0
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	return total > 0
}
