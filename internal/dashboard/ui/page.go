package ui

import (
	"net/url"

	"github.com/superstore-bi/dashboard/internal/dashboard"
	"github.com/superstore-bi/dashboard/internal/format"
	"github.com/superstore-bi/dashboard/internal/kpi"
)

// Paths of the dashboard surface.
const (
	DashboardPath = "/dashboard"
	ExportPath    = "/dashboard/export.csv"
	APIPath       = "/api/dashboard"
)

// Query parameter names shared by the page, the API and the export.
const (
	ParamDateStart   = "date_debut"
	ParamDateEnd     = "date_fin"
	ParamCategory    = "categorie"
	ParamRegion      = "region"
	ParamSegment     = "segment"
	ParamCriterion   = "tri_par"
	ParamGranularity = "periode"
	ParamTab         = "onglet"
)

// Query encodes every selection. Every filter key is present so a link
// carries the whole selection and an empty value clears the constraint.
func Query(p dashboard.Params) url.Values {
	q := url.Values{}
	q.Set(ParamDateStart, p.Filters.DateStart)
	q.Set(ParamDateEnd, p.Filters.DateEnd)
	q.Set(ParamCategory, p.Filters.Category)
	q.Set(ParamRegion, p.Filters.Region)
	q.Set(ParamSegment, p.Filters.Segment)
	q.Set(ParamCriterion, string(p.Criterion))
	q.Set(ParamGranularity, string(p.Granularity))
	q.Set(ParamTab, string(p.Tab))
	return q
}

// Href joins a path with the encoded selections.
func Href(path string, p dashboard.Params) string {
	return path + "?" + Query(p).Encode()
}

// Option is one entry of a select control.
type Option struct {
	Value    string
	Selected bool
}

// Select is a filter dropdown. The empty value means "all".
type Select struct {
	Name     string
	Label    string
	AllLabel string
	Options  []Option
}

// Hidden carries a selection the filter form does not edit.
type Hidden struct {
	Name  string
	Value string
}

// FilterForm is the filter panel.
type FilterForm struct {
	Action    string
	DateStart string
	DateEnd   string
	DateMin   string
	DateMax   string
	Selects   []Select
	Hidden    []Hidden
	ResetHref string
}

func buildForm(snap dashboard.Snapshot) FilterForm {
	d := snap.Domain
	f := snap.Filters
	return FilterForm{
		Action:    DashboardPath,
		DateStart: f.DateStart,
		DateEnd:   f.DateEnd,
		DateMin:   d.Dates.Min,
		DateMax:   d.Dates.Max,
		Selects: []Select{
			newSelect(ParamCategory, "Catégorie", "Toutes les catégories", d.Categories, f.Category),
			newSelect(ParamRegion, "Région", "Toutes les régions", d.Regions, f.Region),
			newSelect(ParamSegment, "Segment", "Tous les segments", d.Segments, f.Segment),
		},
		Hidden: []Hidden{
			{Name: ParamCriterion, Value: string(snap.Criterion)},
			{Name: ParamGranularity, Value: string(snap.Granularity)},
			{Name: ParamTab, Value: string(snap.Tab)},
		},
		ResetHref: DashboardPath,
	}
}

func newSelect(name, label, allLabel string, values []string, selected string) Select {
	s := Select{Name: name, Label: label, AllLabel: allLabel, Options: make([]Option, len(values))}
	for i, v := range values {
		s.Options[i] = Option{Value: v, Selected: v == selected}
	}
	return s
}

// Page is the full dashboard view model.
type Page struct {
	State      dashboard.State
	Status     dashboard.Status
	Error      string
	Refreshing bool
	HasData    bool
	UpdatedAt  string

	Form       FilterForm
	Cards      []Card
	Insights   []Insight
	Temporal   TemporalView
	Categories CategoryView
	Tabs       []Link
	ActiveTab  dashboard.Tab
	Products   ProductView
	Geo        GeoView

	ExportHref string
	APIHref    string
}

// IsGeo reports whether the geographic tab is active.
func (p Page) IsGeo() bool { return p.ActiveTab == dashboard.TabGeo }

// Builder turns snapshots into pages.
type Builder struct {
	format   *format.Formatter
	charts   Charts
	topLimit int
}

// NewBuilder constructs a Builder. topLimit is the product ranking size shown
// in the ranking title.
func NewBuilder(f *format.Formatter, charts Charts, topLimit int) *Builder {
	if charts == nil {
		charts = SVGCharts{}
	}
	if topLimit <= 0 {
		topLimit = dashboard.DefaultTopLimit
	}
	return &Builder{format: f, charts: charts, topLimit: topLimit}
}

// Build maps a Ready snapshot onto the page. Views are built from the last
// committed datasets even when the latest refresh failed.
func (b *Builder) Build(snap dashboard.Snapshot) (Page, error) {
	params := snap.Params()
	page := Page{
		State:      snap.State,
		Status:     snap.Status,
		Error:      snap.ErrorMessage,
		Refreshing: snap.Refreshing(),
		HasData:    snap.HasData,
		Form:       buildForm(snap),
		ActiveTab:  snap.Tab,
		ExportHref: Href(ExportPath, params),
		APIHref:    Href(APIPath, params),
	}
	if !snap.UpdatedAt.IsZero() {
		page.UpdatedAt = snap.UpdatedAt.Format("2006-01-02 15:04:05")
	}
	page.Tabs = []Link{
		tabLink("Produits", dashboard.TabProducts, params),
		tabLink("Géographie", dashboard.TabGeo, params),
	}
	if !snap.HasData {
		return page, nil
	}

	data := snap.Data
	page.Cards = KPICards(data.GlobalKPI, b.format)
	page.Insights = Insights(data.Comparison, data.Margins, data.Loyalty)

	var err error
	if page.Temporal, err = buildTemporal(data.Temporal, data.Comparison, granularityLinks(params), b.format, b.charts); err != nil {
		return Page{}, err
	}
	if page.Categories, err = buildCategories(data.Categories, b.format, b.charts); err != nil {
		return Page{}, err
	}
	if page.Products, err = buildProducts(data.TopProducts, data.Margins, snap.Criterion, b.topLimit, criterionLinks(params), b.format, b.charts); err != nil {
		return Page{}, err
	}
	if page.Geo, err = buildGeo(data.Geo, b.format, b.charts); err != nil {
		return Page{}, err
	}
	return page, nil
}

func tabLink(label string, tab dashboard.Tab, p dashboard.Params) Link {
	active := p.Tab == tab
	p.Tab = tab
	return Link{Label: label, Href: Href(DashboardPath, p), Active: active}
}

func criterionLinks(p dashboard.Params) []Link {
	links := make([]Link, len(kpi.Criteria))
	for i, c := range kpi.Criteria {
		next := p
		next.Criterion = c
		links[i] = Link{Label: c.Label(), Href: Href(DashboardPath, next), Active: p.Criterion == c}
	}
	return links
}

func granularityLinks(p dashboard.Params) []Link {
	links := make([]Link, len(kpi.Granularities))
	for i, g := range kpi.Granularities {
		next := p
		next.Granularity = g
		links[i] = Link{Label: g.ShortLabel(), Href: Href(DashboardPath, next), Active: p.Granularity == g}
	}
	return links
}
