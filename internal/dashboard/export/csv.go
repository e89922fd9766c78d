// Package export serialises dashboard snapshots for download.
package export

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"

	"github.com/superstore-bi/dashboard/internal/dashboard"
	"github.com/superstore-bi/dashboard/internal/dashboard/ui"
	"github.com/superstore-bi/dashboard/internal/kpi"
)

// ErrNoData is returned when a snapshot has never committed a batch.
var ErrNoData = errors.New("export: snapshot has no data")

// Section titles of the combined export, in output order.
const (
	SectionFilters     = "Filtres"
	SectionKPI         = "KPI Globaux"
	SectionTopProducts = "Top Produits"
	SectionCategories  = "Catégories"
	SectionTemporal    = "Évolution Temporelle"
	SectionGeo         = "Performance Régionale"
)

// WriteSnapshotCSV writes every dataset of the snapshot as consecutive
// sections. Each section opens with a single-field title row followed by its
// header row, so readers must allow a variable number of fields per record.
func WriteSnapshotCSV(w io.Writer, snap dashboard.Snapshot) error {
	if !snap.HasData {
		return ErrNoData
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	sections := []func(*csv.Writer) error{
		func(cw *csv.Writer) error { return writeFilters(cw, snap) },
		func(cw *csv.Writer) error { return writeKPI(cw, snap.Data.GlobalKPI) },
		func(cw *csv.Writer) error { return writeTopProducts(cw, snap.Data.TopProducts) },
		func(cw *csv.Writer) error { return writeCategories(cw, snap.Data.Categories) },
		func(cw *csv.Writer) error { return writeTemporal(cw, snap.Data.Temporal) },
		func(cw *csv.Writer) error { return writeGeo(cw, snap.Data.Geo) },
	}
	for _, section := range sections {
		if err := section(writer); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTopProductsCSV emits only the product ranking.
func WriteTopProductsCSV(w io.Writer, products []kpi.TopProduct) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writeTopProducts(writer, products); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteTemporalCSV emits the time series with its smoothing column.
func WriteTemporalCSV(w io.Writer, points []kpi.TemporalPoint) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writeTemporal(writer, points); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeFilters(w *csv.Writer, snap dashboard.Snapshot) error {
	f := snap.Filters
	return writeAll(w, SectionFilters, []string{"Paramètre", "Valeur"}, [][]string{
		{ui.ParamDateStart, f.DateStart},
		{ui.ParamDateEnd, f.DateEnd},
		{ui.ParamCategory, f.Category},
		{ui.ParamRegion, f.Region},
		{ui.ParamSegment, f.Segment},
		{ui.ParamCriterion, string(snap.Criterion)},
		{ui.ParamGranularity, string(snap.Granularity)},
	})
}

func writeKPI(w *csv.Writer, k kpi.GlobalKPI) error {
	return writeAll(w, SectionKPI, []string{"Indicateur", "Valeur"}, [][]string{
		{"Chiffre d'Affaires", formatFloat(k.TotalRevenue)},
		{"Profit Net", formatFloat(k.TotalProfit)},
		{"Marge Moyenne (%)", formatFloat(k.AvgMarginPct)},
		{"Commandes", formatInt(k.OrderCount)},
		{"Clients", formatInt(k.CustomerCount)},
		{"Quantité Vendue", formatInt(k.UnitsSold)},
		{"Panier Moyen", formatFloat(k.AvgOrderValue)},
		{"Ratio Art/Cmd", ui.ArticlesPerOrder(k)},
	})
}

func writeTopProducts(w *csv.Writer, products []kpi.TopProduct) error {
	rows := make([][]string, len(products))
	for i, p := range products {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			p.Product,
			p.Category,
			formatFloat(p.Revenue),
			formatInt(p.Quantity),
			formatFloat(p.Profit),
		}
	}
	return writeAll(w, SectionTopProducts, []string{"Rang", "Produit", "Catégorie", "CA", "Quantité", "Profit"}, rows)
}

func writeCategories(w *csv.Writer, categories []kpi.CategoryPerformance) error {
	rows := make([][]string, len(categories))
	for i, c := range categories {
		rows[i] = []string{
			c.Category,
			formatFloat(c.Revenue),
			formatFloat(c.Profit),
			formatInt(c.OrderCount),
			formatFloat(c.MarginPct),
		}
	}
	return writeAll(w, SectionCategories, []string{"Catégorie", "CA", "Profit", "Commandes", "Marge (%)"}, rows)
}

func writeTemporal(w *csv.Writer, points []kpi.TemporalPoint) error {
	sma := ui.RevenueSMA(points)
	rows := make([][]string, len(points))
	for i, p := range points {
		rows[i] = []string{
			p.Period,
			formatFloat(p.Revenue),
			formatFloat(sma[i]),
			formatFloat(p.Profit),
			formatInt(p.OrderCount),
			formatInt(p.Quantity),
		}
	}
	return writeAll(w, SectionTemporal, []string{"Période", "CA", "CA SMA3", "Profit", "Commandes", "Quantité"}, rows)
}

func writeGeo(w *csv.Writer, regions []kpi.GeoPerformance) error {
	rows := make([][]string, len(regions))
	for i, g := range regions {
		rows[i] = []string{
			g.Region,
			formatFloat(g.Revenue),
			formatFloat(g.Profit),
			formatInt(g.CustomerCount),
			formatInt(g.OrderCount),
		}
	}
	return writeAll(w, SectionGeo, []string{"Région", "CA", "Profit", "Clients", "Commandes"}, rows)
}

func writeAll(w *csv.Writer, title string, header []string, rows [][]string) error {
	if err := w.Write([]string{title}); err != nil {
		return err
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
