// Package filters holds the filter domain and the active filter set.
package filters

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/superstore-bi/dashboard/internal/kpi"
)

// ValidationError reports a filter field that cannot be applied.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("filters: invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ErrUnknownValue is wrapped when a value is absent from the domain.
var ErrUnknownValue = errors.New("value not in filter domain")

// Store is the single holder of the immutable FilterDomain and the active
// FilterSet. It is safe for concurrent use.
type Store struct {
	domain   kpi.FilterDomain
	validate *validator.Validate

	mu     sync.RWMutex
	active kpi.FilterSet
}

// NewStore seeds the active set with the domain defaults.
func NewStore(domain kpi.FilterDomain) *Store {
	s := &Store{
		domain:   domain,
		validate: validator.New(),
	}
	s.active = s.Defaults()
	return s
}

// Domain returns the legal filter values.
func (s *Store) Domain() kpi.FilterDomain {
	return s.domain
}

// Active returns the current filter set.
func (s *Store) Active() kpi.FilterSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActive replaces the whole filter set. Blank fields clear their
// constraint. It returns the stored value.
func (s *Store) SetActive(next kpi.FilterSet) kpi.FilterSet {
	next = next.Normalize()
	s.mu.Lock()
	s.active = next
	s.mu.Unlock()
	return next
}

// Defaults spans the full date range with no other constraint.
func (s *Store) Defaults() kpi.FilterSet {
	return kpi.FilterSet{
		DateStart: s.domain.Dates.Min,
		DateEnd:   s.domain.Dates.Max,
	}
}

// Validate checks date formats and domain membership of the other fields.
func (s *Store) Validate(set kpi.FilterSet) error {
	set = set.Normalize()
	if err := s.validate.Struct(set); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return &ValidationError{Field: fieldErrs[0].Field(), Err: err}
		}
		return &ValidationError{Field: "filters", Err: err}
	}
	checks := []struct {
		field  string
		value  string
		values []string
	}{
		{"Category", set.Category, s.domain.Categories},
		{"Region", set.Region, s.domain.Regions},
		{"Segment", set.Segment, s.domain.Segments},
	}
	for _, c := range checks {
		if c.value != "" && !slices.Contains(c.values, c.value) {
			return &ValidationError{Field: c.field, Err: fmt.Errorf("%w: %q", ErrUnknownValue, c.value)}
		}
	}
	return nil
}
