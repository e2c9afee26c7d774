// Package timer runs the per-table countdowns that drive phase changes.
//
// An Orchestrator owns at most one countdown at a time. It never touches game
// state: it reports ticks and expiries through callbacks, and the table actor
// decides what an expiry means.
package timer

import (
	"sync"
	"time"

	"github.com/jason-s-yu/showtime/engine"
)

// Remaining is the countdown tuple broadcast on every tick. Inactive kinds
// are zero.
type Remaining struct {
	Memorization int `json:"memorization"`
	Turn         int `json:"turn"`
	Choice       int `json:"choice"`
}

// Config wires an Orchestrator to its table.
type Config struct {
	// Interval is the tick length. Defaults to one second.
	Interval time.Duration
	// OnTick receives the tuple after each tick. Called without any lock held.
	OnTick func(Remaining)
	// OnExpire fires once when a countdown reaches zero. gen identifies the
	// countdown so the receiver can drop expiries it has already superseded.
	OnExpire func(kind engine.DeadlineKind, gen uint64)
}

// Orchestrator is one table's countdown owner.
type Orchestrator struct {
	cfg Config

	mu        sync.Mutex
	kind      engine.DeadlineKind
	remaining int
	gen       uint64
	stop      chan struct{}
	closed    bool
}

// New returns an idle orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Orchestrator{cfg: cfg}
}

// Start arms a countdown of the given kind, replacing whatever was running.
// Starting the same kind again resets it. A non-positive duration expires on
// the first tick. It returns the countdown's generation, or 0 once closed.
func (o *Orchestrator) Start(kind engine.DeadlineKind, seconds int) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || kind == engine.DeadlineNone {
		return 0
	}
	o.haltLocked()
	o.gen++
	o.kind = kind
	if seconds < 0 {
		seconds = 0
	}
	o.remaining = seconds
	stop := make(chan struct{})
	o.stop = stop
	go o.run(o.gen, stop)
	return o.gen
}

// Cancel stops the running countdown. Cancelling an idle, expired or closed
// orchestrator is a no-op.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.haltLocked()
}

// Close cancels and refuses further Starts. Safe to call more than once.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.haltLocked()
	o.closed = true
}

// Active reports the running kind and its generation.
func (o *Orchestrator) Active() (engine.DeadlineKind, uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.kind, o.gen
}

// Remaining returns the current countdown tuple.
func (o *Orchestrator) Remaining() Remaining {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tupleLocked()
}

// haltLocked stops the running goroutine and bumps the generation so any
// callback already in flight is recognisably stale.
func (o *Orchestrator) haltLocked() {
	if o.stop != nil {
		close(o.stop)
		o.stop = nil
	}
	if o.kind != engine.DeadlineNone {
		o.gen++
	}
	o.kind = engine.DeadlineNone
	o.remaining = 0
}

func (o *Orchestrator) tupleLocked() Remaining {
	var r Remaining
	switch o.kind {
	case engine.DeadlineMemorization:
		r.Memorization = o.remaining
	case engine.DeadlineTurn:
		r.Turn = o.remaining
	case engine.DeadlineChoice:
		r.Choice = o.remaining
	}
	return r
}

func (o *Orchestrator) run(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			o.mu.Lock()
			if o.gen != gen {
				o.mu.Unlock()
				return
			}
			if o.remaining > 0 {
				o.remaining--
			}
			tuple := o.tupleLocked()
			kind := o.kind
			expired := o.remaining == 0
			if expired {
				// The countdown is over; leave gen as is so the expiry matches.
				o.kind = engine.DeadlineNone
				o.stop = nil
			}
			o.mu.Unlock()

			if o.cfg.OnTick != nil {
				o.cfg.OnTick(tuple)
			}
			if expired {
				if o.cfg.OnExpire != nil {
					o.cfg.OnExpire(kind, gen)
				}
				return
			}
		}
	}
}
