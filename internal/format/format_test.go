package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrencyEnglish(t *testing.T) {
	f, err := New("en-US", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "€1,234.50", f.Currency(1234.5))
	assert.Equal(t, "-€12.00", f.Currency(-12))
}

func TestCurrencyFrench(t *testing.T) {
	f, err := New("fr-FR", "EUR")
	require.NoError(t, err)
	out := f.Currency(1234.5)
	assert.Equal(t, "1\u00a0234,50\u00a0€", out)
	assert.True(t, strings.HasSuffix(out, "\u00a0€"), "symbol should follow the amount after a no-break space: %q", out)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "12.35%", Percent(12.345))
	assert.Equal(t, "0.00%", Percent(0))
	assert.Equal(t, "-4.10%", Percent(-4.1))
	assert.Equal(t, "+3.00%", SignedPercent(3))
	assert.Equal(t, "-3.00%", SignedPercent(-3))
	assert.Equal(t, "45.6%", PercentShort(45.61))
}

func TestRatioAndThousands(t *testing.T) {
	assert.Equal(t, "0.00", Ratio(10, 0))
	assert.Equal(t, "3.75", Ratio(15, 4))
	assert.Equal(t, "12k", Thousands(12345))
	assert.Equal(t, "61.6k", Compact(61599.82))
	assert.Equal(t, "-3.8k", Compact(-3839.99))
	assert.Equal(t, "2.3M", Compact(2297200.86))
	assert.Equal(t, "87", Compact(87))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 20))
	assert.Equal(t, "Staples in Misc. Col...", Truncate("Staples in Misc. Colors", 20))
	assert.Equal(t, "éééé...", Truncate("éééééé", 4))
}

func TestNewRejectsInvalidInput(t *testing.T) {
	_, err := New("not a locale!!", "EUR")
	assert.Error(t, err)
	_, err = New("en", "XXXX")
	assert.Error(t, err)
}

func TestCountGroupsDigits(t *testing.T) {
	f := MustNew("en", "USD")
	assert.Equal(t, "9,994", f.Count(9994))
}
