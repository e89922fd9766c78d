package dashboard

import (
	"time"

	"github.com/superstore-bi/dashboard/internal/kpi"
)

// State is the session lifecycle.
type State string

// Session lifecycle states.
const (
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateFailed       State = "failed"
)

// Status is the outcome of the latest settled refresh while Ready.
type Status string

// Refresh outcomes as seen by the views.
const (
	StatusPending Status = "pending"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
)

// Datasets are the eight result slots of a refresh batch. They are replaced
// together and never mutated after commit.
type Datasets struct {
	GlobalKPI   kpi.GlobalKPI             `json:"global_kpi"`
	Comparison  kpi.ComparisonReport      `json:"comparison"`
	Loyalty     kpi.CustomerLoyalty       `json:"loyalty"`
	Margins     kpi.MarginReport          `json:"margins"`
	TopProducts []kpi.TopProduct          `json:"top_products"`
	Categories  []kpi.CategoryPerformance `json:"categories"`
	Temporal    []kpi.TemporalPoint       `json:"temporal"`
	Geo         []kpi.GeoPerformance      `json:"geo"`
}

// Snapshot is the immutable read model handed to views.
type Snapshot struct {
	State        State            `json:"state"`
	Status       Status           `json:"status"`
	Err          error            `json:"-"`
	ErrorMessage string           `json:"error,omitempty"`
	Filters      kpi.FilterSet    `json:"filters"`
	Domain       kpi.FilterDomain `json:"domain"`
	Data         Datasets         `json:"data"`
	HasData      bool             `json:"has_data"`
	Criterion    kpi.Criterion    `json:"criterion"`
	Granularity  kpi.Granularity  `json:"granularity"`
	Tab          Tab              `json:"tab"`
	Seq          uint64           `json:"seq"`
	Settled      uint64           `json:"settled"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Refreshing reports whether a newer batch is still outstanding.
func (s Snapshot) Refreshing() bool {
	return s.State == StateReady && s.Seq > s.Settled
}

// Params returns the selections the snapshot was taken with.
func (s Snapshot) Params() Params {
	return Params{
		Filters:     s.Filters,
		Criterion:   s.Criterion,
		Granularity: s.Granularity,
		Tab:         s.Tab,
	}
}

// Event is pushed to subscribers after a batch settles.
type Event struct {
	Seq    uint64 `json:"seq"`
	State  State  `json:"state"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}
