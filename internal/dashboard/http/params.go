package dashboardhttp

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/superstore-bi/dashboard/internal/dashboard"
	"github.com/superstore-bi/dashboard/internal/dashboard/ui"
	"github.com/superstore-bi/dashboard/internal/kpi"
	"github.com/superstore-bi/dashboard/internal/kpi/client"
)

const (
	paramLimit           = "limite"
	defaultCustomerLimit = 10
)

// isReload reports a bare request: no selection at all means start over.
func isReload(q url.Values) bool {
	return len(q) == 0
}

// parseParams builds the full selection of a request on top of current.
// A filter key that is absent keeps the current value; a present but empty
// value clears the constraint. Criterion, granularity and tab keep the
// current value when absent or empty.
func parseParams(q url.Values, current dashboard.Params) (dashboard.Params, error) {
	next := current
	setFilter(q, ui.ParamDateStart, &next.Filters.DateStart)
	setFilter(q, ui.ParamDateEnd, &next.Filters.DateEnd)
	setFilter(q, ui.ParamCategory, &next.Filters.Category)
	setFilter(q, ui.ParamRegion, &next.Filters.Region)
	setFilter(q, ui.ParamSegment, &next.Filters.Segment)

	if raw := q.Get(ui.ParamCriterion); raw != "" {
		c, err := kpi.ParseCriterion(raw)
		if err != nil {
			return dashboard.Params{}, fmt.Errorf("%w: %w", dashboard.ErrInvalidParams, err)
		}
		next.Criterion = c
	}
	if raw := q.Get(ui.ParamGranularity); raw != "" {
		g, err := kpi.ParseGranularity(raw)
		if err != nil {
			return dashboard.Params{}, fmt.Errorf("%w: %w", dashboard.ErrInvalidParams, err)
		}
		next.Granularity = g
	}
	if raw := q.Get(ui.ParamTab); raw != "" {
		tab, err := dashboard.ParseTab(raw)
		if err != nil {
			return dashboard.Params{}, err
		}
		next.Tab = tab
	}
	return next, nil
}

func setFilter(q url.Values, key string, dst *string) {
	if values, ok := q[key]; ok {
		*dst = strings.TrimSpace(first(values))
	}
}

func parseLimit(q url.Values) (int, error) {
	raw := strings.TrimSpace(q.Get(paramLimit))
	if raw == "" {
		return defaultCustomerLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > client.MaxCustomerLimit {
		return 0, fmt.Errorf("%w: %s must be between 1 and %d", dashboard.ErrInvalidParams, paramLimit, client.MaxCustomerLimit)
	}
	return limit, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
