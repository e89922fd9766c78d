package dashboard

import (
	"fmt"
	"strings"

	"github.com/superstore-bi/dashboard/internal/kpi"
)

// Tab names the active detail panel.
type Tab string

// Detail panels.
const (
	TabProducts Tab = "produits"
	TabGeo      Tab = "geo"
)

// ParseTab validates a raw tab value.
func ParseTab(raw string) (Tab, error) {
	t := Tab(strings.TrimSpace(raw))
	switch t {
	case TabProducts, TabGeo:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown tab %q", ErrInvalidParams, raw)
}

// Params is the full set of user selections. Apply replaces it wholesale.
type Params struct {
	Filters     kpi.FilterSet
	Criterion   kpi.Criterion
	Granularity kpi.Granularity
	Tab         Tab
}

// DefaultParams derives the initial selections from the filter domain.
func DefaultParams(domain kpi.FilterDomain) Params {
	return Params{
		Filters:     kpi.FilterSet{DateStart: domain.Dates.Min, DateEnd: domain.Dates.Max},
		Criterion:   kpi.CriterionRevenue,
		Granularity: kpi.GranularityMonth,
		Tab:         TabProducts,
	}
}

func (p Params) validate() error {
	if !p.Criterion.Valid() {
		return fmt.Errorf("%w: unknown ranking criterion %q", ErrInvalidParams, p.Criterion)
	}
	if !p.Granularity.Valid() {
		return fmt.Errorf("%w: unknown granularity %q", ErrInvalidParams, p.Granularity)
	}
	if _, err := ParseTab(string(p.Tab)); err != nil {
		return err
	}
	return nil
}

// drivesData reports whether moving from p to next needs a new batch.
func (p Params) drivesData(next Params) bool {
	return p.Filters != next.Filters || p.Criterion != next.Criterion || p.Granularity != next.Granularity
}
