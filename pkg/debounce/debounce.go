// Package debounce turns a stream of query edits into settled queries.
//
// An edit is forwarded once no further edit arrived within the window. Blank
// edits and explicit clears skip the window and call the clear callback at
// once. A settled value equal to the last forwarded one is dropped.
//
// Every edit, clear and forwarded value advances one sequence number. A
// consumer that starts work for a settled value checks Current with that
// value's sequence before applying it, so the latest request wins.
//
// A clear also forgets the last forwarded value: typing the same query again
// after clearing searches again instead of leaving the view awaiting input.
package debounce

import (
	"strings"
	"sync"
	"time"

	"github.com/diegoralt/Artify/pkg/logging"
	"github.com/rs/zerolog"
)

// DefaultWindow is the quiet period used when New gets a non-positive window.
const DefaultWindow = 400 * time.Millisecond

// Debouncer collapses rapid query edits into one settled value.
type Debouncer struct {
	window   time.Duration
	onSettle func(query string, seq uint64)
	onClear  func()
	logger   zerolog.Logger

	mu        sync.Mutex
	timer     *time.Timer
	pending   string
	seq       uint64
	forwarded string
	stopped   bool
}

// New creates a debouncer. onSettle receives each settled non-blank query
// with its sequence number; onClear runs when the query is cleared. Either
// may be nil.
func New(window time.Duration, onSettle func(query string, seq uint64), onClear func()) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{
		window:   window,
		onSettle: onSettle,
		onClear:  onClear,
		logger:   logging.NewLogger("debounce"),
	}
}

// Update records an edit and restarts the quiet window.
func (d *Debouncer) Update(text string) {
	if strings.TrimSpace(text) == "" {
		d.Clear()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = text
	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.flush(seq) })
}

// Forward records text as forwarded without waiting for the window, dropping
// any pending edit. It returns the sequence number of the forwarded value, or
// 0 once stopped.
func (d *Debouncer) Forward(text string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return 0
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	d.pending = ""
	d.forwarded = text
	return d.seq
}

// Current reports whether seq still belongs to the latest edit, clear or
// forwarded value.
func (d *Debouncer) Current(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.stopped && seq == d.seq
}

// flush forwards the pending edit unless a newer edit or a clear replaced it.
func (d *Debouncer) flush(seq uint64) {
	d.mu.Lock()
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	if d.pending == d.forwarded {
		d.logger.Debug().Str("query", d.pending).Msg("Suppressed repeated query")
		d.mu.Unlock()
		return
	}
	text := d.pending
	d.forwarded = text
	d.mu.Unlock()

	if d.onSettle != nil {
		d.onSettle(text, seq)
	}
}

// Clear drops any pending edit and calls onClear immediately.
func (d *Debouncer) Clear() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.pending != "" {
		d.logger.Debug().Str("query", d.pending).Msg("Dropped pending query on clear")
	}
	d.seq++
	d.pending = ""
	d.forwarded = ""
	d.mu.Unlock()

	if d.onClear != nil {
		d.onClear()
	}
}

// Stop prevents any further callbacks from firing.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = ""
}
