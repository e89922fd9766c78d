// Package kpi holds the value records exchanged with the KPI backend.
package kpi

import (
	"fmt"
	"strings"
)

// FilterSet constrains every KPI query. An empty field means no constraint.
type FilterSet struct {
	DateStart string `json:"date_debut,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DateEnd   string `json:"date_fin,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Category  string `json:"categorie,omitempty"`
	Region    string `json:"region,omitempty"`
	Segment   string `json:"segment,omitempty"`
}

// Normalize trims every field so blank input clears the constraint.
func (f FilterSet) Normalize() FilterSet {
	return FilterSet{
		DateStart: strings.TrimSpace(f.DateStart),
		DateEnd:   strings.TrimSpace(f.DateEnd),
		Category:  strings.TrimSpace(f.Category),
		Region:    strings.TrimSpace(f.Region),
		Segment:   strings.TrimSpace(f.Segment),
	}
}

// IsZero reports whether no constraint is set.
func (f FilterSet) IsZero() bool {
	return f == FilterSet{}
}

// DateRange is the inclusive span of order dates in the dataset.
type DateRange struct {
	Min string `json:"min" validate:"required,datetime=2006-01-02"`
	Max string `json:"max" validate:"required,datetime=2006-01-02"`
}

// FilterDomain lists the legal values of every filter dimension.
type FilterDomain struct {
	Categories []string  `json:"categories"`
	Regions    []string  `json:"regions"`
	Segments   []string  `json:"segments"`
	States     []string  `json:"etats"`
	Dates      DateRange `json:"plage_dates" validate:"required"`
}

// GlobalKPI is the aggregate snapshot for a filter set.
type GlobalKPI struct {
	TotalRevenue  float64 `json:"ca_total"`
	OrderCount    int64   `json:"nb_commandes" validate:"gte=0"`
	CustomerCount int64   `json:"nb_clients" validate:"gte=0"`
	AvgOrderValue float64 `json:"panier_moyen"`
	UnitsSold     int64   `json:"quantite_vendue" validate:"gte=0"`
	TotalProfit   float64 `json:"profit_total"`
	AvgMarginPct  float64 `json:"marge_moyenne"`
}

// TopProduct is one row of a product ranking.
type TopProduct struct {
	Product  string  `json:"produit" validate:"required"`
	Category string  `json:"categorie"`
	Revenue  float64 `json:"ca"`
	Quantity int64   `json:"quantite"`
	Profit   float64 `json:"profit"`
}

// ProductMargin is one row of a margin ranking.
type ProductMargin struct {
	Product   string  `json:"produit" validate:"required"`
	Category  string  `json:"categorie"`
	Revenue   float64 `json:"ca"`
	Profit    float64 `json:"profit"`
	MarginPct float64 `json:"marge_pct"`
}

// MarginReport bundles the highest and lowest margin products.
type MarginReport struct {
	Top    []ProductMargin `json:"top" validate:"dive"`
	Bottom []ProductMargin `json:"bottom" validate:"dive"`
}

// CategoryPerformance aggregates one product category.
type CategoryPerformance struct {
	Category   string  `json:"categorie" validate:"required"`
	Revenue    float64 `json:"ca"`
	Profit     float64 `json:"profit"`
	OrderCount int64   `json:"nb_commandes"`
	MarginPct  float64 `json:"marge_pct"`
}

// TemporalPoint is one bucket of the time series. Period is an opaque label
// shaped by the requested granularity.
type TemporalPoint struct {
	Period     string  `json:"periode" validate:"required"`
	Revenue    float64 `json:"ca"`
	Profit     float64 `json:"profit"`
	OrderCount int64   `json:"nb_commandes"`
	Quantity   int64   `json:"quantite"`
}

// PeriodComparison compares a month with the previous one.
type PeriodComparison struct {
	Period       string  `json:"periode"`
	Revenue      float64 `json:"ca"`
	PriorRevenue float64 `json:"ca_prec"`
	EvolutionPct float64 `json:"evolution_pct"`
}

// ComparisonReport is the month-over-month series plus its last entry.
type ComparisonReport struct {
	Series []PeriodComparison `json:"series"`
	Latest PeriodComparison   `json:"latest"`
}

// GeoPerformance aggregates one region.
type GeoPerformance struct {
	Region        string  `json:"region" validate:"required"`
	Revenue       float64 `json:"ca"`
	Profit        float64 `json:"profit"`
	CustomerCount int64   `json:"nb_clients"`
	OrderCount    int64   `json:"nb_commandes"`
}

// CustomerLoyalty summarises repeat purchasing.
type CustomerLoyalty struct {
	TotalCustomers        int64   `json:"total_clients" validate:"gte=0"`
	RepeatCustomers       int64   `json:"clients_recurrents" validate:"gte=0"`
	NewCustomers          int64   `json:"clients_nouveaux" validate:"gte=0"`
	RepeatRatePct         float64 `json:"repeat_rate_pct"`
	AvgOrdersPerCustomer  float64 `json:"avg_orders_per_client"`
	RepeatCustomerRevenue float64 `json:"ca_clients_recurrents"`
	RepeatRevenueSharePct float64 `json:"share_ca_recurrent_pct"`
	AvgDaysBetweenOrders  float64 `json:"avg_days_between_orders"`
}

// TopCustomer is one row of the customer ranking.
type TopCustomer struct {
	CustomerID    string  `json:"customer_id" validate:"required"`
	Name          string  `json:"nom"`
	TotalRevenue  float64 `json:"ca_total"`
	TotalProfit   float64 `json:"profit_total"`
	OrderCount    int64   `json:"nb_commandes"`
	AvgOrderValue float64 `json:"valeur_commande_moy"`
}

// Recurrence counts one-time versus repeat customers.
type Recurrence struct {
	SingleOrderCustomers int64   `json:"clients_1_achat"`
	RepeatCustomers      int64   `json:"clients_recurrents"`
	AvgOrders            float64 `json:"nb_commandes_moyen"`
	TotalCustomers       int64   `json:"total_clients"`
}

// SegmentPerformance aggregates one customer segment.
type SegmentPerformance struct {
	Segment       string  `json:"segment" validate:"required"`
	Revenue       float64 `json:"ca"`
	Profit        float64 `json:"profit"`
	CustomerCount int64   `json:"nb_clients"`
}

// CustomerAnalysis is the customer ranking, recurrence and segment report.
type CustomerAnalysis struct {
	TopCustomers []TopCustomer        `json:"top_clients" validate:"dive"`
	Recurrence   Recurrence           `json:"recurrence"`
	Segments     []SegmentPerformance `json:"segments" validate:"dive"`
}

// APIInfo describes the backend root endpoint.
type APIInfo struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Dataset string `json:"dataset"`
	Rows    int64  `json:"nb_lignes"`
	Period  struct {
		Start string `json:"debut"`
		End   string `json:"fin"`
	} `json:"periode"`
}

// Criterion selects the ranking measure for top products.
type Criterion string

// Ranking criteria understood by the backend.
const (
	CriterionRevenue  Criterion = "ca"
	CriterionProfit   Criterion = "profit"
	CriterionQuantity Criterion = "quantite"
)

// Criteria lists the ranking criteria in display order.
var Criteria = []Criterion{CriterionRevenue, CriterionProfit, CriterionQuantity}

// ParseCriterion validates a raw criterion value.
func ParseCriterion(raw string) (Criterion, error) {
	c := Criterion(strings.TrimSpace(raw))
	if !c.Valid() {
		return "", fmt.Errorf("kpi: unknown ranking criterion %q", raw)
	}
	return c, nil
}

// Valid reports whether c is a known criterion.
func (c Criterion) Valid() bool {
	switch c {
	case CriterionRevenue, CriterionProfit, CriterionQuantity:
		return true
	}
	return false
}

// Label is the display name of the criterion.
func (c Criterion) Label() string {
	switch c {
	case CriterionProfit:
		return "Profit / Pertes"
	case CriterionQuantity:
		return "Volume"
	default:
		return "Chiffre d'Affaires"
	}
}

// Value extracts the ranked measure from a product row.
func (c Criterion) Value(p TopProduct) float64 {
	switch c {
	case CriterionProfit:
		return p.Profit
	case CriterionQuantity:
		return float64(p.Quantity)
	default:
		return p.Revenue
	}
}

// Granularity selects the time bucket of the temporal series.
type Granularity string

// Granularities understood by the backend.
const (
	GranularityDay   Granularity = "jour"
	GranularityMonth Granularity = "mois"
	GranularityYear  Granularity = "annee"
)

// Granularities lists the time buckets in display order.
var Granularities = []Granularity{GranularityDay, GranularityMonth, GranularityYear}

// ParseGranularity validates a raw granularity value.
func ParseGranularity(raw string) (Granularity, error) {
	g := Granularity(strings.TrimSpace(raw))
	if !g.Valid() {
		return "", fmt.Errorf("kpi: unknown granularity %q", raw)
	}
	return g, nil
}

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityDay, GranularityMonth, GranularityYear:
		return true
	}
	return false
}

// ShortLabel is the compact switch label (1J, 1M, 1A).
func (g Granularity) ShortLabel() string {
	switch g {
	case GranularityDay:
		return "1J"
	case GranularityYear:
		return "1A"
	default:
		return "1M"
	}
}
