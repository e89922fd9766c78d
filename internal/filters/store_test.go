package filters

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superstore-bi/dashboard/internal/kpi"
)

func sampleDomain() kpi.FilterDomain {
	return kpi.FilterDomain{
		Categories: []string{"Furniture", "Office Supplies", "Technology"},
		Regions:    []string{"Central", "East", "South", "West"},
		Segments:   []string{"Consumer", "Corporate", "Home Office"},
		States:     []string{"California", "Texas"},
		Dates:      kpi.DateRange{Min: "2021-01-01", Max: "2022-12-31"},
	}
}

func TestDefaultsSpanDateBoundsOnly(t *testing.T) {
	s := NewStore(sampleDomain())
	assert.Equal(t, kpi.FilterSet{DateStart: "2021-01-01", DateEnd: "2022-12-31"}, s.Active())
	assert.Equal(t, s.Defaults(), s.Active())
}

func TestSetActiveReplacesWholesale(t *testing.T) {
	s := NewStore(sampleDomain())
	s.SetActive(kpi.FilterSet{DateStart: "2021-01-01", DateEnd: "2022-12-31", Category: "Technology", Region: "West"})

	stored := s.SetActive(kpi.FilterSet{Region: " East "})
	assert.Equal(t, kpi.FilterSet{Region: "East"}, stored)
	assert.Equal(t, stored, s.Active())
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	s := NewStore(sampleDomain())

	require.NoError(t, s.Validate(kpi.FilterSet{Category: "Furniture", Segment: "Corporate"}))

	err := s.Validate(kpi.FilterSet{Region: "North"})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "Region", vErr.Field)
	assert.ErrorIs(t, err, ErrUnknownValue)
}

func TestValidateRejectsMalformedDates(t *testing.T) {
	s := NewStore(sampleDomain())

	err := s.Validate(kpi.FilterSet{DateStart: "2021-13-01"})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "DateStart", vErr.Field)

	assert.NoError(t, s.Validate(kpi.FilterSet{DateEnd: "2022-06-30"}))
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore(sampleDomain())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetActive(kpi.FilterSet{Category: "Technology"})
		}()
		go func() {
			defer wg.Done()
			_ = s.Active()
		}()
	}
	wg.Wait()
	assert.Equal(t, "Technology", s.Active().Category)
}
