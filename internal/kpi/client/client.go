// Package client is the typed request layer over the KPI backend API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/superstore-bi/dashboard/internal/kpi"
)

// DefaultTimeout bounds every backend call.
const DefaultTimeout = 10 * time.Second

// Row limits accepted by the backend.
const (
	MaxProductLimit  = 50
	MaxCustomerLimit = 100
)

const errorBodyLimit = 512

// Observer receives one observation per backend call.
type Observer interface {
	ObserveUpstream(op, outcome string, elapsed time.Duration)
}

// Client issues one HTTP request per query. It never retries and never caches.
type Client struct {
	base     *url.URL
	http     *http.Client
	validate *validator.Validate
	observer Observer
}

// Option customises a Client.
type Option func(*Client)

// WithTransport swaps the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// WithObserver registers a call observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New constructs a Client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		return nil, errors.New("client: base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("client: unsupported scheme %q", base.Scheme)
	}
	c := &Client{
		base:     base,
		http:     &http.Client{Timeout: DefaultTimeout},
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchAPIInfo reads the backend root descriptor.
func (c *Client) FetchAPIInfo(ctx context.Context) (kpi.APIInfo, error) {
	var out kpi.APIInfo
	err := c.get(ctx, "api_info", "/", nil, &out)
	return out, err
}

// FetchFilterDomain loads the legal filter values and date bounds.
func (c *Client) FetchFilterDomain(ctx context.Context) (kpi.FilterDomain, error) {
	var out kpi.FilterDomain
	if err := c.get(ctx, "filter_domain", "/filters/valeurs", nil, &out); err != nil {
		return kpi.FilterDomain{}, err
	}
	return out, nil
}

// FetchGlobalKPI loads the aggregate KPI snapshot.
func (c *Client) FetchGlobalKPI(ctx context.Context, filters kpi.FilterSet) (kpi.GlobalKPI, error) {
	const op = "global_kpi"
	q, err := c.filterQuery(op, filters)
	if err != nil {
		return kpi.GlobalKPI{}, err
	}
	var out kpi.GlobalKPI
	if err := c.get(ctx, op, "/kpi/globaux", q, &out); err != nil {
		return kpi.GlobalKPI{}, err
	}
	return out, nil
}

// FetchTopProducts loads the product ranking ordered by criterion.
func (c *Client) FetchTopProducts(ctx context.Context, limit int, criterion kpi.Criterion, filters kpi.FilterSet) ([]kpi.TopProduct, error) {
	const op = "top_products"
	if !criterion.Valid() {
		return nil, invalid(op, fmt.Errorf("unknown ranking criterion %q", criterion))
	}
	if err := checkLimit(op, limit, MaxProductLimit); err != nil {
		return nil, err
	}
	q, err := c.filterQuery(op, filters)
	if err != nil {
		return nil, err
	}
	q.Set("limite", strconv.Itoa(limit))
	q.Set("tri_par", string(criterion))
	return fetchList[kpi.TopProduct](ctx, c, op, "/kpi/produits/top", q)
}

// FetchProductMargins loads the highest and lowest margin products.
func (c *Client) FetchProductMargins(ctx context.Context, limit int, filters kpi.FilterSet) (kpi.MarginReport, error) {
	const op = "product_margins"
	if err := checkLimit(op, limit, MaxProductLimit); err != nil {
		return kpi.MarginReport{}, err
	}
	q, err := c.filterQuery(op, filters)
	if err != nil {
		return kpi.MarginReport{}, err
	}
	q.Set("limite", strconv.Itoa(limit))
	var out kpi.MarginReport
	if err := c.get(ctx, op, "/kpi/produits/marge", q, &out); err != nil {
		return kpi.MarginReport{}, err
	}
	return out, nil
}

// FetchCategoryPerformance loads one row per product category.
func (c *Client) FetchCategoryPerformance(ctx context.Context, filters kpi.FilterSet) ([]kpi.CategoryPerformance, error) {
	const op = "category_performance"
	q, err := c.filterQuery(op, filters)
	if err != nil {
		return nil, err
	}
	return fetchList[kpi.CategoryPerformance](ctx, c, op, "/kpi/categories", q)
}

// FetchTemporalEvolution loads the chronological series for a granularity.
func (c *Client) FetchTemporalEvolution(ctx context.Context, granularity kpi.Granularity, filters kpi.FilterSet) ([]kpi.TemporalPoint, error) {
	const op = "temporal_evolution"
	if !granularity.Valid() {
		return nil, invalid(op, fmt.Errorf("unknown granularity %q", granularity))
	}
	q, err := c.filterQuery(op, filters)
	if err != nil {
		return nil, err
	}
	q.Set("periode", string(granularity))
	return fetchList[kpi.TemporalPoint](ctx, c, op, "/kpi/temporel", q)
}

// FetchPeriodComparison loads the month-over-month comparison.
func (c *Client) FetchPeriodComparison(ctx context.Context, filters kpi.FilterSet) (kpi.ComparisonReport, error) {
	const op = "period_comparison"
	q, err := c.filterQuery(op, filters)
	if err != nil {
		return kpi.ComparisonReport{}, err
	}
	var out kpi.ComparisonReport
	if err := c.get(ctx, op, "/kpi/temporel/comparaison", q, &out); err != nil {
		return kpi.ComparisonReport{}, err
	}
	return out, nil
}

// FetchGeoPerformance loads one row per region.
func (c *Client) FetchGeoPerformance(ctx context.Context, filters kpi.FilterSet) ([]kpi.GeoPerformance, error) {
	const op = "geo_performance"
	q, err := c.filterQuery(op, filters)
	if err != nil {
		return nil, err
	}
	return fetchList[kpi.GeoPerformance](ctx, c, op, "/kpi/geographique", q)
}

// FetchCustomerLoyalty loads the repeat-purchase snapshot.
func (c *Client) FetchCustomerLoyalty(ctx context.Context, filters kpi.FilterSet) (kpi.CustomerLoyalty, error) {
	const op = "customer_loyalty"
	q, err := c.filterQuery(op, filters)
	if err != nil {
		return kpi.CustomerLoyalty{}, err
	}
	var out kpi.CustomerLoyalty
	if err := c.get(ctx, op, "/kpi/clients/fidelite", q, &out); err != nil {
		return kpi.CustomerLoyalty{}, err
	}
	return out, nil
}

// FetchCustomerAnalysis loads the customer ranking, recurrence and segments.
func (c *Client) FetchCustomerAnalysis(ctx context.Context, limit int, filters kpi.FilterSet) (kpi.CustomerAnalysis, error) {
	const op = "customer_analysis"
	if err := checkLimit(op, limit, MaxCustomerLimit); err != nil {
		return kpi.CustomerAnalysis{}, err
	}
	q, err := c.filterQuery(op, filters)
	if err != nil {
		return kpi.CustomerAnalysis{}, err
	}
	q.Set("limite", strconv.Itoa(limit))
	var out kpi.CustomerAnalysis
	if err := c.get(ctx, op, "/kpi/clients", q, &out); err != nil {
		return kpi.CustomerAnalysis{}, err
	}
	return out, nil
}

// filterQuery maps a filter set onto query parameters. Empty fields are
// omitted entirely.
func (c *Client) filterQuery(op string, filters kpi.FilterSet) (url.Values, error) {
	f := filters.Normalize()
	if err := c.validate.Struct(f); err != nil {
		return nil, invalid(op, err)
	}
	q := url.Values{}
	setIf(q, "date_debut", f.DateStart)
	setIf(q, "date_fin", f.DateEnd)
	setIf(q, "categorie", f.Category)
	setIf(q, "region", f.Region)
	setIf(q, "segment", f.Segment)
	return q, nil
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func checkLimit(op string, limit, max int) error {
	if limit < 1 || limit > max {
		return invalid(op, fmt.Errorf("limit %d outside 1..%d", limit, max))
	}
	return nil
}

func invalid(op string, err error) error {
	return &RequestError{Op: op, Kind: KindInvalid, Err: err}
}

func fetchList[T any](ctx context.Context, c *Client, op, path string, q url.Values) ([]T, error) {
	var out []T
	if err := c.get(ctx, op, path, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	u.RawQuery = ""
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) (err error) {
	started := time.Now()
	defer func() {
		if c.observer == nil {
			return
		}
		outcome := "ok"
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			outcome = string(reqErr.Kind)
		}
		c.observer.ObserveUpstream(op, outcome, time.Since(started))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, q), nil)
	if err != nil {
		return invalid(op, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &RequestError{
			Op:     op,
			Kind:   KindStatus,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return transportError(ctx, op, err)
		}
		return &RequestError{Op: op, Kind: KindDecode, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if err := c.check(out); err != nil {
		return &RequestError{Op: op, Kind: KindDecode, Status: resp.StatusCode, Err: fmt.Errorf("invalid payload: %w", err)}
	}
	return nil
}

// check validates a decoded payload. Lists are validated element by element.
func (c *Client) check(out any) error {
	switch v := out.(type) {
	case *[]kpi.TopProduct:
		return checkEach(c.validate, *v)
	case *[]kpi.CategoryPerformance:
		return checkEach(c.validate, *v)
	case *[]kpi.TemporalPoint:
		return checkEach(c.validate, *v)
	case *[]kpi.GeoPerformance:
		return checkEach(c.validate, *v)
	default:
		return c.validate.Struct(out)
	}
}

func checkEach[T any](v *validator.Validate, items []T) error {
	for i := range items {
		if err := v.Struct(items[i]); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func transportError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return &RequestError{Op: op, Kind: KindCanceled, Err: err}
	case errors.Is(ctx.Err(), context.DeadlineExceeded), isTimeout(err):
		return &RequestError{Op: op, Kind: KindTimeout, Err: err}
	default:
		return &RequestError{Op: op, Kind: KindNetwork, Err: err}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
