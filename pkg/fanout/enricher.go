// Package fanout resolves per-item enrichment for a page of results with a
// bounded worker pool.
//
// One call is issued per distinct item ID. A failed or timed-out call never
// fails the batch: that item gets the request's Default value instead.
//
//	genres := fanout.Enrich(ctx, enricher, fanout.Request[catalog.ReleaseSummary, int, []string]{
//	    Operation: "release_genres",
//	    Items:     releases,
//	    ID:        func(r catalog.ReleaseSummary) int { return r.ID },
//	    Fetch:     fetchGenres,
//	    Default:   []string{},
//	})
package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/diegoralt/Artify/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Call outcomes recorded in artify_fanout_calls_total.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artify_fanout_calls_total",
		Help: "Enrichment calls by operation and outcome",
	}, []string{"operation", "result"})

	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "artify_fanout_duration_seconds",
		Help:    "Wall time of one enrichment fan-out by operation",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
	}, []string{"operation"})
)

// Config holds enricher configuration
type Config struct {
	// MaxConcurrency is the maximum number of calls in flight per batch
	MaxConcurrency int
	// Timeout per enrichment call
	Timeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		Timeout:        15 * time.Second,
	}
}

// Enricher runs fan-out batches.
type Enricher struct {
	config Config
	logger zerolog.Logger
}

// New creates an enricher. Non-positive fields fall back to DefaultConfig.
func New(config Config) *Enricher {
	def := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = def.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}

	return &Enricher{
		config: config,
		logger: logging.NewLogger("fanout"),
	}
}

// Config returns the effective configuration.
func (e *Enricher) Config() Config {
	return e.config
}

// Request describes one fan-out: which items, how to key them and how to
// fetch the enrichment for a key.
type Request[T any, K comparable, V any] struct {
	// Operation names the batch in logs and metrics
	Operation string
	// Items to enrich; duplicates by ID are fetched once
	Items []T
	// ID extracts the enrichment key of an item
	ID func(T) K
	// Fetch resolves one key; it receives a context bounded by Config.Timeout
	Fetch func(context.Context, K) (V, error)
	// Default is substituted for every key whose call failed or was skipped
	Default V
}

type outcome[K comparable, V any] struct {
	key     K
	value   V
	err     error
	skipped bool
}

// Enrich runs req and returns one entry per distinct item ID. It returns only
// after every call settled and never fails as a whole. Once ctx is done the
// remaining keys settle with Default without being fetched.
func Enrich[T any, K comparable, V any](ctx context.Context, e *Enricher, req Request[T, K, V]) map[K]V {
	if e == nil {
		e = New(DefaultConfig())
	}
	start := time.Now()

	keys := distinctKeys(req.Items, req.ID)
	results := make(map[K]V, len(keys))
	if len(keys) == 0 {
		return results
	}

	workers := e.config.MaxConcurrency
	if workers > len(keys) {
		workers = len(keys)
	}

	// Buffered to len(keys): neither the queue fill nor a worker send blocks
	keyQueue := make(chan K, len(keys))
	outcomes := make(chan outcome[K, V], len(keys))

	for _, key := range keys {
		keyQueue <- key
	}
	close(keyQueue)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go enrichWorker(ctx, e, req, keyQueue, outcomes, &wg)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Single collector: the map is only written here
	failed, skipped := 0, 0
	for o := range outcomes {
		switch {
		case o.skipped:
			skipped++
			results[o.key] = req.Default
			callsTotal.WithLabelValues(req.Operation, ResultSkipped).Inc()
		case o.err != nil:
			failed++
			results[o.key] = req.Default
			callsTotal.WithLabelValues(req.Operation, ResultFailed).Inc()
			e.logger.Debug().
				Err(o.err).
				Str("operation", req.Operation).
				Interface("id", o.key).
				Msg("Enrichment call failed, using default")
		default:
			results[o.key] = o.value
			callsTotal.WithLabelValues(req.Operation, ResultOK).Inc()
		}
	}

	duration := time.Since(start)
	batchDuration.WithLabelValues(req.Operation).Observe(duration.Seconds())

	e.logger.Info().
		Str("operation", req.Operation).
		Int("items", len(keys)).
		Int("failed", failed).
		Int("skipped", skipped).
		Dur("duration", duration).
		Msg("Fan-out complete")

	return results
}

// enrichWorker processes keys from the queue.
func enrichWorker[T any, K comparable, V any](ctx context.Context, e *Enricher, req Request[T, K, V], keyQueue <-chan K, outcomes chan<- outcome[K, V], wg *sync.WaitGroup) {
	defer wg.Done()

	for key := range keyQueue {
		if ctx.Err() != nil {
			outcomes <- outcome[K, V]{key: key, skipped: true}
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		value, err := req.Fetch(callCtx, key)
		cancel()

		outcomes <- outcome[K, V]{key: key, value: value, err: err}
	}
}

// distinctKeys returns the item keys in first-seen order.
func distinctKeys[T any, K comparable](items []T, id func(T) K) []K {
	seen := make(map[K]struct{}, len(items))
	keys := make([]K, 0, len(items))
	for _, item := range items {
		key := id(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
