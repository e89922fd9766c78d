package ui

import (
	"github.com/superstore-bi/dashboard/internal/format"
	"github.com/superstore-bi/dashboard/internal/kpi"
)

// Card is one KPI summary tile.
type Card struct {
	Label string
	Value string
	Tone  Tone
}

// KPICards builds the summary tiles in display order.
func KPICards(k kpi.GlobalKPI, f *format.Formatter) []Card {
	profitTone := TonePositive
	if k.TotalProfit < 0 {
		profitTone = ToneNegative
	}
	return []Card{
		{Label: "Chiffre d'Affaires", Value: f.Currency(k.TotalRevenue), Tone: ToneInfo},
		{Label: "Profit Net", Value: f.Currency(k.TotalProfit), Tone: profitTone},
		{Label: "Marge", Value: format.Percent(k.AvgMarginPct), Tone: ToneInfo},
		{Label: "Commandes", Value: f.Count(float64(k.OrderCount)), Tone: ToneNeutral},
		{Label: "Clients Actifs", Value: f.Count(float64(k.CustomerCount)), Tone: ToneNeutral},
		{Label: "Flux Volume", Value: f.Count(float64(k.UnitsSold)), Tone: ToneNeutral},
		{Label: "Panier Moyen", Value: f.Currency(k.AvgOrderValue), Tone: ToneNeutral},
		{Label: "Ratio Art/Cmd", Value: ArticlesPerOrder(k), Tone: ToneNeutral},
	}
}

// ArticlesPerOrder is units sold per order with two decimals, "0.00" when
// there are no orders.
func ArticlesPerOrder(k kpi.GlobalKPI) string {
	return format.Ratio(float64(k.UnitsSold), float64(k.OrderCount))
}
