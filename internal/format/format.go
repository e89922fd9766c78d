// Package format renders raw KPI numbers for display.
package format

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Defaults match the dashboard's historical fr-FR / EUR presentation.
const (
	DefaultLocale   = "fr-FR"
	DefaultCurrency = "EUR"
)

// Formatter converts numbers into locale formatted strings. It is safe for
// concurrent use once constructed.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	symbol  string
	suffix  bool
}

// New builds a Formatter for a BCP 47 locale and an ISO 4217 currency code.
func New(locale, currencyCode string) (*Formatter, error) {
	if strings.TrimSpace(locale) == "" {
		locale = DefaultLocale
	}
	if strings.TrimSpace(currencyCode) == "" {
		currencyCode = DefaultCurrency
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("format: parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("format: parse currency %q: %w", currencyCode, err)
	}
	printer := message.NewPrinter(tag)
	return &Formatter{
		tag:     tag,
		printer: printer,
		symbol:  printer.Sprint(currency.NarrowSymbol(unit)),
		suffix:  symbolAfterAmount(tag),
	}, nil
}

// MustNew is New for static configuration; it panics on invalid input.
func MustNew(locale, currencyCode string) *Formatter {
	f, err := New(locale, currencyCode)
	if err != nil {
		panic(err)
	}
	return f
}

// Locale reports the configured language tag.
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// Currency formats an amount with exactly two decimals and the currency symbol.
func (f *Formatter) Currency(v float64) string {
	amount := f.printer.Sprint(number.Decimal(v, number.Scale(2)))
	if f.suffix {
		return amount + " " + f.symbol
	}
	if strings.HasPrefix(amount, "-") {
		return "-" + f.symbol + strings.TrimPrefix(amount, "-")
	}
	return f.symbol + amount
}

// Count formats a plain number with locale grouping.
func (f *Formatter) Count(v float64) string {
	return f.printer.Sprint(number.Decimal(v))
}

// Percent formats a percentage value with two decimals, e.g. 12.345 -> "12.35%".
func Percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// PercentShort formats a percentage with a single decimal.
func PercentShort(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// SignedPercent prefixes non-negative values with "+".
func SignedPercent(v float64) string {
	if v >= 0 {
		return "+" + Percent(v)
	}
	return Percent(v)
}

// Thousands renders v/1000 without decimals and a "k" suffix.
func Thousands(v float64) string {
	return fmt.Sprintf("%.0fk", v/1000)
}

// Compact abbreviates large magnitudes, e.g. 61599.8 -> "61.6k".
func Compact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// Ratio returns num/den with two decimals, or "0.00" when den is zero.
func Ratio(num, den float64) string {
	if den == 0 || math.IsNaN(den) {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", num/den)
}

// Truncate shortens s to max runes and appends an ellipsis when cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func symbolAfterAmount(tag language.Tag) bool {
	base, _ := tag.Base()
	switch base.String() {
	case "fr", "de", "es", "it", "pt", "nl", "pl", "cs", "sv", "fi", "da", "nb", "ru":
		return true
	}
	return false
}
