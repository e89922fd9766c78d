package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/superstore-bi/dashboard/internal/dashboard"
	"github.com/superstore-bi/dashboard/internal/kpi"
)

func readAll(t *testing.T, data []byte) [][]string {
	t.Helper()
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	return records
}

func indexOf(records [][]string, title string) int {
	for i, r := range records {
		if len(r) == 1 && r[0] == title {
			return i
		}
	}
	return -1
}

func TestWriteSnapshotCSV(t *testing.T) {
	snap := dashboard.Snapshot{
		HasData:     true,
		Filters:     kpi.FilterSet{DateStart: "2021-01-01", DateEnd: "2022-12-31", Region: "West"},
		Criterion:   kpi.CriterionProfit,
		Granularity: kpi.GranularityMonth,
		Data: dashboard.Datasets{
			GlobalKPI:   kpi.GlobalKPI{TotalRevenue: 2297200.86, OrderCount: 5009, UnitsSold: 37873},
			TopProducts: []kpi.TopProduct{{Product: "Canon imageCLASS", Category: "Technology", Revenue: 61599.824, Quantity: 20, Profit: 25199.93}},
			Categories:  []kpi.CategoryPerformance{{Category: "Technology", Revenue: 836154.03}},
			Temporal: []kpi.TemporalPoint{
				{Period: "2021-01", Revenue: 100},
				{Period: "2021-02", Revenue: 200},
				{Period: "2021-03", Revenue: 300},
				{Period: "2021-04", Revenue: 600},
			},
			Geo: []kpi.GeoPerformance{{Region: "West", Revenue: 725457.82, CustomerCount: 686}},
		},
	}

	buf := &bytes.Buffer{}
	if err := WriteSnapshotCSV(buf, snap); err != nil {
		t.Fatalf("snapshot csv error: %v", err)
	}
	records := readAll(t, buf.Bytes())

	order := []string{SectionFilters, SectionKPI, SectionTopProducts, SectionCategories, SectionTemporal, SectionGeo}
	last := -1
	for _, title := range order {
		idx := indexOf(records, title)
		if idx <= last {
			t.Fatalf("section %q missing or out of order (idx %d after %d)", title, idx, last)
		}
		last = idx
	}

	top := records[indexOf(records, SectionTopProducts)+2]
	if top[0] != "1" || top[1] != "Canon imageCLASS" || top[3] != "61599.82" {
		t.Fatalf("unexpected product row %v", top)
	}

	temporal := indexOf(records, SectionTemporal)
	if got := records[temporal+1][2]; got != "CA SMA3" {
		t.Fatalf("expected SMA header, got %q", got)
	}
	if got := records[temporal+5][2]; got != "366.67" {
		t.Fatalf("expected smoothed 366.67, got %q", got)
	}

	kpiIdx := indexOf(records, SectionKPI)
	ratio := records[kpiIdx+9]
	if ratio[0] != "Ratio Art/Cmd" || ratio[1] != "7.56" {
		t.Fatalf("unexpected ratio row %v", ratio)
	}
}

func TestWriteSnapshotCSVWithoutData(t *testing.T) {
	err := WriteSnapshotCSV(&bytes.Buffer{}, dashboard.Snapshot{})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestWriteTemporalCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteTemporalCSV(buf, []kpi.TemporalPoint{{Period: "2021", Revenue: 10, OrderCount: 3}}); err != nil {
		t.Fatalf("temporal csv error: %v", err)
	}
	records := readAll(t, buf.Bytes())
	if len(records) != 3 {
		t.Fatalf("expected title, header and one row, got %d", len(records))
	}
	if records[2][2] != "10.00" || records[2][4] != "3" {
		t.Fatalf("unexpected row %v", records[2])
	}
}
