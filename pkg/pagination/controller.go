package pagination

import (
	"context"
	"math"
	"sync"

	"github.com/diegoralt/Artify/internal/broadcast"
	"github.com/diegoralt/Artify/pkg/catalog"
	"github.com/diegoralt/Artify/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	pagesLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artify_pages_loaded_total",
		Help: "Page loads by outcome (ok, failed)",
	}, []string{"result"})

	pageRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artify_page_rollbacks_total",
		Help: "Next-page loads that failed and restored the previous cursor",
	})

	staleDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artify_stale_results_discarded_total",
		Help: "Page results dropped because a newer query superseded them",
	})
)

// Unbounded is the page count assumed before the first response arrives.
const Unbounded = math.MaxInt

// Status is the phase of the current query.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is an immutable snapshot of a controller.
type State[T any] struct {
	Status          Status
	Items           []T
	Page            int
	TotalPages      int
	LoadingNextPage bool
	Err             error
	Message         string
	Generation      uint64
}

// HasMore reports whether pages remain after the current one.
func (s State[T]) HasMore() bool {
	return s.Page < s.TotalPages
}

// LoadFunc loads one page of a query.
type LoadFunc[T any] func(ctx context.Context, page int) (catalog.PageOf[T], error)

// Controller drives the pagination of one query at a time.
type Controller[T any] struct {
	name   string
	logger zerolog.Logger

	mu       sync.Mutex
	state    State[T]
	load     LoadFunc[T]
	cancels  map[uint64]context.CancelFunc
	nextOp   uint64
	onChange []func(State[T])

	subs *broadcast.Broadcaster[State[T]]
}

// New creates an idle controller. name appears in logs.
func New[T any](name string) *Controller[T] {
	return &Controller[T]{
		name:    name,
		logger:  logging.NewLogger("pagination").With().Str("collection", name).Logger(),
		state:   State[T]{Status: StatusIdle, Page: 1, TotalPages: Unbounded},
		cancels: make(map[uint64]context.CancelFunc),
		subs:    broadcast.New[State[T]](),
	}
}

// OnChange registers fn to run after every state change, in order, while the
// controller lock is held. fn must not call back into the controller.
func (c *Controller[T]) OnChange(fn func(State[T])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// State returns the current snapshot.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel carrying the latest state after each change.
func (c *Controller[T]) Subscribe() (<-chan State[T], func()) {
	return c.subs.Subscribe()
}

// Start begins a new query with load, superseding and cancelling any query in
// flight. It blocks until the first page settled.
func (c *Controller[T]) Start(ctx context.Context, load LoadFunc[T]) {
	c.StartIf(ctx, load, nil)
}

// StartIf is Start guarded by current, which runs under the controller lock
// before anything changes. When current reports false the query is dropped
// and StartIf returns false without loading. current must not call back into
// the controller.
func (c *Controller[T]) StartIf(ctx context.Context, load LoadFunc[T], current func() bool) bool {
	c.mu.Lock()
	if current != nil && !current() {
		c.mu.Unlock()
		staleDiscarded.Inc()
		c.logger.Debug().Msg("Dropping superseded query before start")
		return false
	}
	c.cancelAllLocked()
	c.load = load
	gen := c.state.Generation + 1
	c.setLocked(State[T]{
		Status:     StatusLoading,
		Page:       1,
		TotalPages: Unbounded,
		Generation: gen,
	})
	loadCtx, done := c.trackLocked(ctx)
	c.mu.Unlock()
	defer done()

	result, err := load(loadCtx, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Generation != gen {
		staleDiscarded.Inc()
		c.logger.Debug().Uint64("generation", gen).Msg("Discarding superseded first page")
		return true
	}

	if err != nil {
		pagesLoaded.WithLabelValues("failed").Inc()
		c.logger.Warn().Err(err).Msg("First page failed")
		c.setLocked(State[T]{
			Status:     StatusError,
			Page:       1,
			TotalPages: Unbounded,
			Err:        err,
			Message:    catalog.MessageOf(err),
			Generation: gen,
		})
		return true
	}

	pagesLoaded.WithLabelValues("ok").Inc()
	items := make([]T, len(result.Items))
	copy(items, result.Items)
	c.setLocked(State[T]{
		Status:     StatusSuccess,
		Items:      items,
		Page:       1,
		TotalPages: result.Page.Pages,
		Generation: gen,
	})
	c.logger.Debug().
		Int("items", len(items)).
		Int("total_pages", result.Page.Pages).
		Msg("First page loaded")
	return true
}

// LoadNextPage loads the page after the current one and appends its items.
// It returns false without loading unless the query succeeded, no next-page
// load is in flight and pages remain. A failed load restores the cursor and
// keeps the items.
func (c *Controller[T]) LoadNextPage(ctx context.Context) bool {
	c.mu.Lock()
	s := c.state
	if s.Status != StatusSuccess || s.LoadingNextPage || !s.HasMore() || c.load == nil {
		c.mu.Unlock()
		return false
	}

	prevPage := s.Page
	s.Page = prevPage + 1
	s.LoadingNextPage = true
	c.setLocked(s)

	load := c.load
	gen := s.Generation
	loadCtx, done := c.trackLocked(ctx)
	c.mu.Unlock()
	defer done()

	result, err := load(loadCtx, prevPage+1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Generation != gen {
		staleDiscarded.Inc()
		c.logger.Debug().Uint64("generation", gen).Int("page", prevPage+1).Msg("Discarding superseded page")
		return true
	}

	next := c.state
	next.LoadingNextPage = false

	if err != nil {
		pagesLoaded.WithLabelValues("failed").Inc()
		pageRollbacks.Inc()
		c.logger.Warn().Err(err).Int("page", prevPage+1).Msg("Next page failed, restoring cursor")
		next.Page = prevPage
		c.setLocked(next)
		return true
	}

	pagesLoaded.WithLabelValues("ok").Inc()
	items := make([]T, 0, len(next.Items)+len(result.Items))
	items = append(items, next.Items...)
	items = append(items, result.Items...)
	next.Items = items
	next.TotalPages = result.Page.Pages
	c.setLocked(next)

	c.logger.Debug().
		Int("page", next.Page).
		Int("items", len(items)).
		Int("total_pages", next.TotalPages).
		Msg("Next page loaded")
	return true
}

// Retry restarts the last query from page 1. It returns false when nothing
// was started.
func (c *Controller[T]) Retry(ctx context.Context) bool {
	c.mu.Lock()
	load := c.load
	c.mu.Unlock()

	if load == nil {
		return false
	}
	c.Start(ctx, load)
	return true
}

// Reset cancels any load in flight and returns to the idle state.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelAllLocked()
	c.load = nil
	c.setLocked(State[T]{
		Status:     StatusIdle,
		Page:       1,
		TotalPages: Unbounded,
		Generation: c.state.Generation + 1,
	})
}

// Close cancels loads in flight and closes subscriber channels.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	c.cancelAllLocked()
	c.mu.Unlock()
	c.subs.Close()
}

func (c *Controller[T]) setLocked(s State[T]) {
	c.state = s
	for _, fn := range c.onChange {
		fn(s)
	}
	c.subs.Publish(s)
}

// trackLocked derives a load context that a later Start or Reset cancels.
func (c *Controller[T]) trackLocked(ctx context.Context) (context.Context, func()) {
	loadCtx, cancel := context.WithCancel(ctx)
	id := c.nextOp
	c.nextOp++
	c.cancels[id] = cancel

	return loadCtx, func() {
		c.mu.Lock()
		delete(c.cancels, id)
		c.mu.Unlock()
		cancel()
	}
}

func (c *Controller[T]) cancelAllLocked() {
	for id, cancel := range c.cancels {
		cancel()
		delete(c.cancels, id)
	}
}
