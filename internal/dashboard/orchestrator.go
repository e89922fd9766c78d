// Package dashboard owns the per-session dashboard state: the filter domain,
// the user selections and the datasets of the latest committed refresh batch.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/superstore-bi/dashboard/internal/filters"
	"github.com/superstore-bi/dashboard/internal/kpi"
)

// DefaultTopLimit is the row count of product rankings.
const DefaultTopLimit = 10

// Fetcher is the subset of the KPI client the orchestrator needs.
type Fetcher interface {
	FetchFilterDomain(ctx context.Context) (kpi.FilterDomain, error)
	FetchGlobalKPI(ctx context.Context, filters kpi.FilterSet) (kpi.GlobalKPI, error)
	FetchTopProducts(ctx context.Context, limit int, criterion kpi.Criterion, filters kpi.FilterSet) ([]kpi.TopProduct, error)
	FetchProductMargins(ctx context.Context, limit int, filters kpi.FilterSet) (kpi.MarginReport, error)
	FetchCategoryPerformance(ctx context.Context, filters kpi.FilterSet) ([]kpi.CategoryPerformance, error)
	FetchTemporalEvolution(ctx context.Context, granularity kpi.Granularity, filters kpi.FilterSet) ([]kpi.TemporalPoint, error)
	FetchPeriodComparison(ctx context.Context, filters kpi.FilterSet) (kpi.ComparisonReport, error)
	FetchGeoPerformance(ctx context.Context, filters kpi.FilterSet) ([]kpi.GeoPerformance, error)
	FetchCustomerLoyalty(ctx context.Context, filters kpi.FilterSet) (kpi.CustomerLoyalty, error)
}

// Recorder observes refresh batches. Outcome is committed, failed or discarded.
type Recorder interface {
	ObserveRefresh(outcome string, elapsed time.Duration)
}

// Refresh outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeFailed    = "failed"
	OutcomeDiscarded = "discarded"
)

// Options tunes an Orchestrator.
type Options struct {
	TopLimit int
	Logger   *slog.Logger
	Recorder Recorder
	Now      func() time.Time
}

// Orchestrator sequences the filter domain load and the fenced refresh
// batches of one dashboard session. It is safe for concurrent use.
type Orchestrator struct {
	fetch    Fetcher
	topLimit int
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time

	base context.Context
	stop context.CancelFunc

	startOnce sync.Once
	startSeq  uint64
	startErr  error

	mu        sync.Mutex
	state     State
	status    Status
	err       error
	closed    bool
	store     *filters.Store
	params    Params
	data      Datasets
	hasData   bool
	updatedAt time.Time
	issued    uint64
	settled   uint64
	inflight  context.CancelFunc
	settledCh chan struct{}
	subs      map[chan Event]struct{}
}

// NewOrchestrator builds an orchestrator in the Initializing state.
func NewOrchestrator(fetch Fetcher, opts Options) *Orchestrator {
	if opts.TopLimit <= 0 {
		opts.TopLimit = DefaultTopLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	base, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		fetch:     fetch,
		topLimit:  opts.TopLimit,
		logger:    opts.Logger,
		recorder:  opts.Recorder,
		now:       opts.Now,
		base:      base,
		stop:      stop,
		state:     StateInitializing,
		status:    StatusPending,
		settledCh: make(chan struct{}),
		subs:      make(map[chan Event]struct{}),
	}
}

// Start loads the filter domain once, seeds the default selections and
// issues the first refresh batch. It returns that batch's sequence number.
// A domain failure is terminal and is returned by every later call.
func (o *Orchestrator) Start(ctx context.Context) (uint64, error) {
	o.startOnce.Do(func() {
		o.startSeq, o.startErr = o.start(ctx)
	})
	return o.startSeq, o.startErr
}

func (o *Orchestrator) start(ctx context.Context) (uint64, error) {
	domain, err := o.fetch.FetchFilterDomain(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0, ErrClosed
	}
	if err != nil {
		o.state = StateFailed
		o.err = &DomainLoadError{Err: err}
		o.logger.Error("filter domain load failed", slog.Any("error", err))
		o.notifyLocked()
		return 0, o.err
	}

	o.store = filters.NewStore(domain)
	o.params = DefaultParams(domain)
	o.state = StateReady
	o.logger.Info("filter domain loaded",
		slog.Int("categories", len(domain.Categories)),
		slog.Int("regions", len(domain.Regions)),
		slog.String("date_min", domain.Dates.Min),
		slog.String("date_max", domain.Dates.Max),
	)
	return o.issueLocked(), nil
}

// Apply replaces every user selection at once. A batch is issued when
// filters, criterion or granularity changed, or when the latest batch failed;
// the returned sequence number is the batch whose data reflects p.
func (o *Orchestrator) Apply(_ context.Context, p Params) (uint64, error) {
	if err := p.validate(); err != nil {
		return 0, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.readyLocked(); err != nil {
		return 0, err
	}
	if err := o.store.Validate(p.Filters); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	p.Filters = o.store.SetActive(p.Filters)
	prev := o.params
	o.params = p
	if !prev.drivesData(p) && !o.retryLocked() {
		return o.issued, nil
	}
	return o.issueLocked(), nil
}

// retryLocked reports whether the latest batch failed and nothing newer is
// in flight, so resubmitting the same selections runs it again.
func (o *Orchestrator) retryLocked() bool {
	return o.status == StatusError && o.settled == o.issued
}

// Reload restores the default selections and always issues a new batch.
func (o *Orchestrator) Reload(_ context.Context) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.readyLocked(); err != nil {
		return 0, err
	}
	o.params = DefaultParams(o.store.Domain())
	o.params.Filters = o.store.SetActive(o.store.Defaults())
	return o.issueLocked(), nil
}

// Wait blocks until batch seq, or a later one, has settled.
func (o *Orchestrator) Wait(ctx context.Context, seq uint64) error {
	for {
		o.mu.Lock()
		switch {
		case o.closed:
			o.mu.Unlock()
			return ErrClosed
		case o.state == StateFailed:
			err := o.err
			o.mu.Unlock()
			return err
		case o.state == StateReady && o.settled >= seq:
			o.mu.Unlock()
			return nil
		}
		ch := o.settledCh
		o.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Subscribe returns a channel that receives an Event after every settled
// batch or domain failure. Slow subscribers only see the latest event. The
// returned function unsubscribes and closes the channel.
func (o *Orchestrator) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	o.subs[ch] = struct{}{}
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if _, ok := o.subs[ch]; ok {
				delete(o.subs, ch)
				close(ch)
			}
		})
	}
}

// Snapshot returns the current read model.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		State:       o.state,
		Status:      o.status,
		Err:         o.err,
		Filters:     o.params.Filters,
		Criterion:   o.params.Criterion,
		Granularity: o.params.Granularity,
		Tab:         o.params.Tab,
		Data:        o.data,
		HasData:     o.hasData,
		Seq:         o.issued,
		Settled:     o.settled,
		UpdatedAt:   o.updatedAt,
	}
	if o.err != nil {
		snap.ErrorMessage = o.err.Error()
	}
	if o.store != nil {
		snap.Domain = o.store.Domain()
	}
	return snap
}

// Close cancels any in-flight batch and releases waiters and subscribers.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.stop()
	close(o.settledCh)
	for ch := range o.subs {
		close(ch)
		delete(o.subs, ch)
	}
}

func (o *Orchestrator) readyLocked() error {
	if o.closed {
		return ErrClosed
	}
	switch o.state {
	case StateFailed:
		return o.err
	case StateInitializing:
		return ErrNotReady
	}
	return nil
}

// issueLocked starts a batch for the current selections. Any older batch is
// cancelled; its completion will be discarded by the sequence check.
func (o *Orchestrator) issueLocked() uint64 {
	if o.inflight != nil {
		o.inflight()
	}
	o.issued++
	seq := o.issued
	ctx, cancel := context.WithCancel(o.base)
	o.inflight = cancel

	req := batch{
		seq:         seq,
		filters:     o.params.Filters,
		criterion:   o.params.Criterion,
		granularity: o.params.Granularity,
	}
	o.logger.Debug("refresh batch issued", slog.Uint64("seq", seq))
	go o.run(ctx, cancel, req)
	return seq
}

type batch struct {
	seq         uint64
	filters     kpi.FilterSet
	criterion   kpi.Criterion
	granularity kpi.Granularity
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, req batch) {
	defer cancel()
	started := time.Now()
	data, err := o.fetchAll(ctx, req)
	elapsed := time.Since(started)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || req.seq != o.issued {
		o.logger.Debug("refresh batch discarded", slog.Uint64("seq", req.seq), slog.Uint64("latest", o.issued))
		o.observe(OutcomeDiscarded, elapsed)
		return
	}

	o.inflight = nil
	o.settled = req.seq
	if err != nil {
		o.status = StatusError
		o.err = err
		o.logger.Warn("refresh batch failed", slog.Uint64("seq", req.seq), slog.Any("error", err))
		o.observe(OutcomeFailed, elapsed)
	} else {
		o.data = data
		o.hasData = true
		o.status = StatusLoaded
		o.err = nil
		o.updatedAt = o.now()
		o.logger.Info("refresh batch committed", slog.Uint64("seq", req.seq), slog.Duration("elapsed", elapsed))
		o.observe(OutcomeCommitted, elapsed)
	}
	o.notifyLocked()
}

// fetchAll runs the eight data calls concurrently. The result is all eight
// datasets or the first failure.
func (o *Orchestrator) fetchAll(ctx context.Context, req batch) (Datasets, error) {
	var d Datasets
	f := req.filters
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := o.fetch.FetchGlobalKPI(gctx, f)
		d.GlobalKPI = v
		return wrapRefresh(req.seq, "global_kpi", err)
	})
	g.Go(func() error {
		v, err := o.fetch.FetchPeriodComparison(gctx, f)
		d.Comparison = v
		return wrapRefresh(req.seq, "period_comparison", err)
	})
	g.Go(func() error {
		v, err := o.fetch.FetchCustomerLoyalty(gctx, f)
		d.Loyalty = v
		return wrapRefresh(req.seq, "customer_loyalty", err)
	})
	g.Go(func() error {
		v, err := o.fetch.FetchProductMargins(gctx, o.topLimit, f)
		d.Margins = v
		return wrapRefresh(req.seq, "product_margins", err)
	})
	g.Go(func() error {
		v, err := o.fetch.FetchTopProducts(gctx, o.topLimit, req.criterion, f)
		d.TopProducts = v
		return wrapRefresh(req.seq, "top_products", err)
	})
	g.Go(func() error {
		v, err := o.fetch.FetchCategoryPerformance(gctx, f)
		d.Categories = v
		return wrapRefresh(req.seq, "category_performance", err)
	})
	g.Go(func() error {
		v, err := o.fetch.FetchTemporalEvolution(gctx, req.granularity, f)
		d.Temporal = v
		return wrapRefresh(req.seq, "temporal_evolution", err)
	})
	g.Go(func() error {
		v, err := o.fetch.FetchGeoPerformance(gctx, f)
		d.Geo = v
		return wrapRefresh(req.seq, "geo_performance", err)
	})

	if err := g.Wait(); err != nil {
		return Datasets{}, err
	}
	return d, nil
}

func wrapRefresh(seq uint64, op string, err error) error {
	if err == nil {
		return nil
	}
	return &RefreshError{Seq: seq, Op: op, Err: err}
}

func (o *Orchestrator) observe(outcome string, elapsed time.Duration) {
	if o.recorder != nil {
		o.recorder.ObserveRefresh(outcome, elapsed)
	}
}

// notifyLocked wakes waiters and pushes the latest event to subscribers.
func (o *Orchestrator) notifyLocked() {
	close(o.settledCh)
	o.settledCh = make(chan struct{})

	ev := Event{Seq: o.settled, State: o.state, Status: o.status}
	if o.err != nil {
		ev.Error = o.err.Error()
	}
	for ch := range o.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// IsRefreshError reports whether err came from a failed refresh batch.
func IsRefreshError(err error) bool {
	var refreshErr *RefreshError
	return errors.As(err, &refreshErr)
}
