package ui

import (
	"fmt"

	"github.com/superstore-bi/dashboard/internal/format"
	"github.com/superstore-bi/dashboard/internal/kpi"
)

// RetentionCriticalBelow is the repeat rate under which retention is critical.
const RetentionCriticalBelow = 30.0

const assetNameRunes = 20

// Insight is one headline of the decision panel.
type Insight struct {
	Title    string
	Headline string
	Detail   string
	Tone     Tone
}

// Insights builds the decision panel: trend, top asset when available, and
// retention.
func Insights(comparison kpi.ComparisonReport, margins kpi.MarginReport, loyalty kpi.CustomerLoyalty) []Insight {
	out := []Insight{TrendInsight(comparison.Latest)}
	if asset, ok := TopAssetInsight(margins); ok {
		out = append(out, asset)
	}
	return append(out, RetentionInsight(loyalty))
}

// Growing reports whether the evolution reads as growth. Zero counts as growth.
func Growing(evolutionPct float64) bool {
	return evolutionPct >= 0
}

// TrendInsight frames the latest month-over-month evolution.
func TrendInsight(latest kpi.PeriodComparison) Insight {
	if Growing(latest.EvolutionPct) {
		return Insight{
			Title:    "Tendance Globale",
			Headline: "Croissance soutenue",
			Detail:   "Le CA progresse de " + format.SignedPercent(latest.EvolutionPct),
			Tone:     TonePositive,
		}
	}
	return Insight{
		Title:    "Tendance Globale",
		Headline: "Correction du marché",
		Detail:   fmt.Sprintf("Recul de %s vs période préc.", format.Percent(latest.EvolutionPct)),
		Tone:     ToneNegative,
	}
}

// TopAssetInsight highlights the best margin product. It reports false when
// the margin ranking is empty.
func TopAssetInsight(margins kpi.MarginReport) (Insight, bool) {
	if len(margins.Top) == 0 {
		return Insight{}, false
	}
	best := margins.Top[0]
	return Insight{
		Title:    "Top Asset",
		Headline: format.Truncate(best.Product, assetNameRunes),
		Detail:   fmt.Sprintf("Marge exceptionnelle de %s", format.PercentShort(best.MarginPct)),
		Tone:     ToneInfo,
	}, true
}

// RetentionCritical reports whether a repeat rate is below the healthy floor.
func RetentionCritical(repeatRatePct float64) bool {
	return repeatRatePct < RetentionCriticalBelow
}

// RetentionInsight frames the repeat purchase rate.
func RetentionInsight(l kpi.CustomerLoyalty) Insight {
	in := Insight{
		Title:    "Rétention",
		Headline: format.Percent(l.RepeatRatePct) + " Repeat Rate",
	}
	if RetentionCritical(l.RepeatRatePct) {
		in.Detail = "Niveau critique"
		in.Tone = ToneNegative
	} else {
		in.Detail = "Fidélisation saine"
		in.Tone = TonePositive
	}
	return in
}
