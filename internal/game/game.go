// internal/game/game.go
package game

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/showtime/engine"
	"github.com/jason-s-yu/showtime/internal/models"
	"github.com/jason-s-yu/showtime/internal/timer"
	log "github.com/sirupsen/logrus"
)

// Persister accepts table documents for asynchronous storage.
type Persister interface {
	Enqueue(doc models.TableDocument)
	Remove(tableID string)
}

// ActionPublisher ships audit records to an external queue.
type ActionPublisher interface {
	PublishAction(ctx context.Context, rec models.ActionRecord) error
}

// errSkip makes mutate a no-op without reporting an error.
var errSkip = errors.New("skip")

// armKey identifies the state a countdown was armed for. A mutation that
// leaves the key unchanged keeps the running countdown.
type armKey struct {
	kind    engine.DeadlineKind
	turn    int
	pending bool
}

// Table is the actor owning one engine table. Every mutation, whether a
// player command or a timer expiry, runs through mutate under mu.
type Table struct {
	ID string

	mu       sync.Mutex
	state    *engine.Table
	timers   *timer.Orchestrator
	armed    armKey
	armedGen uint64
	seq      uint64
	version  int64
	logged   int // number of engine log entries already published
	deleted  bool
	outbox   []outbound

	// sendMu serializes flushes so subscribers see events in seq order.
	sendMu sync.Mutex

	deps deps
	log  *log.Entry
}

type deps struct {
	broadcaster Broadcaster
	persister   Persister
	publisher   ActionPublisher
}

func newTable(state *engine.Table, d deps, tick time.Duration) *Table {
	t := &Table{
		ID:     state.ID,
		state:  state,
		deps:   d,
		logged: len(state.Log),
		log:    log.WithFields(log.Fields{"table": state.ID, "code": state.Code}),
	}
	t.timers = timer.New(timer.Config{
		Interval: tick,
		OnTick:   t.onTick,
		OnExpire: t.onExpire,
	})
	return t
}

// mutate runs op as the table's single critical section. On success it
// queues the resulting events, re-arms the countdown and hands a document to
// the persister. A failed op leaves the table and its timers untouched.
func (t *Table) mutate(op func(s *engine.Table) ([]outbound, error)) error {
	t.mu.Lock()
	if t.deleted {
		t.mu.Unlock()
		return &engine.Error{Kind: engine.KindNotFound, Message: "table " + t.ID + " was deleted"}
	}
	prevPlayer, prevTurn, prevPhase := t.state.CurrentPlayerID, t.state.TurnIndex, t.state.Phase

	events, err := op(t.state)
	if err != nil {
		t.mu.Unlock()
		if errors.Is(err, errSkip) {
			return nil
		}
		return err
	}

	s := t.state
	for _, ob := range events {
		t.enqueueLocked(ob)
	}
	if t.deleted {
		// The op retired the table: deliver its farewell and stop the clock.
		t.mu.Unlock()
		t.flush()
		t.timers.Close()
		return nil
	}
	if s.CurrentPlayerID != "" && (s.CurrentPlayerID != prevPlayer || s.TurnIndex != prevTurn) {
		t.enqueueLocked(public(turnChangedEvent(s)))
	}
	if s.Phase == engine.PhaseFinished && prevPhase != engine.PhaseFinished {
		t.enqueueLocked(public(gameFinishedEvent(s)))
	}
	t.enqueueSyncLocked()
	t.armLocked()

	doc, docErr := t.documentLocked()
	records := t.newRecordsLocked()
	t.mu.Unlock()

	t.flush()
	if docErr != nil {
		t.log.WithError(docErr).Error("encode table state")
	} else if t.deps.persister != nil {
		t.deps.persister.Enqueue(doc)
	}
	t.publish(records)
	return nil
}

// read runs fn against the table under the lock. fn must copy anything it
// keeps.
func (t *Table) read(fn func(s *engine.Table)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deleted {
		return &engine.Error{Kind: engine.KindNotFound, Message: "table " + t.ID + " was deleted"}
	}
	fn(t.state)
	return nil
}

func (t *Table) enqueueLocked(ob outbound) {
	t.seq++
	ob.ev.Seq = t.seq
	ob.ev.TableID = t.ID
	t.outbox = append(t.outbox, ob)
}

// flush delivers queued events in seq order. Delivery happens outside mu.
func (t *Table) flush() {
	if t.deps.broadcaster == nil {
		t.mu.Lock()
		t.outbox = nil
		t.mu.Unlock()
		return
	}
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	t.mu.Lock()
	batch := t.outbox
	t.outbox = nil
	t.mu.Unlock()

	for _, ob := range batch {
		if ob.to == "" {
			t.deps.broadcaster.Broadcast(t.ID, ob.ev)
		} else {
			t.deps.broadcaster.SendTo(t.ID, ob.to, ob.ev)
		}
	}
}

// armLocked starts, replaces or cancels the countdown to match the state.
func (t *Table) armLocked() {
	s := t.state
	kind := s.ActiveDeadline()
	// A turn countdown keeps running across a draw made under it.
	key := armKey{kind: kind, turn: s.TurnIndex, pending: s.Pending != nil && kind == engine.DeadlineChoice}
	if key == t.armed {
		return
	}
	t.armed = key

	seconds := 0
	switch key.kind {
	case engine.DeadlineMemorization:
		seconds = s.Settings.MemorizationSeconds
	case engine.DeadlineTurn:
		seconds = s.Settings.TurnSeconds
	case engine.DeadlineChoice:
		seconds = s.Settings.ChoiceSeconds
	}
	// Turn and choice limits of zero mean no limit; memorization always runs.
	if key.kind == engine.DeadlineNone || (seconds == 0 && key.kind != engine.DeadlineMemorization) {
		t.timers.Cancel()
		t.armedGen = 0
		return
	}
	t.armedGen = t.timers.Start(key.kind, seconds)
	t.log.WithFields(log.Fields{"deadline": key.kind.String(), "seconds": seconds}).Debug("countdown armed")
}

func (t *Table) onTick(rem timer.Remaining) {
	t.mu.Lock()
	if t.deleted {
		t.mu.Unlock()
		return
	}
	t.enqueueLocked(public(Event{Type: EventTimerTick, Timer: &rem}))
	t.mu.Unlock()
	t.flush()
}

// onExpire feeds a countdown expiry through the same path as a player action.
func (t *Table) onExpire(kind engine.DeadlineKind, gen uint64) {
	err := t.mutate(func(s *engine.Table) ([]outbound, error) {
		if gen != t.armedGen || s.ActiveDeadline() != kind {
			return nil, errSkip
		}
		var events []outbound
		if s.Pending != nil {
			events = append(events, public(discardEvent(s.Pending.PlayerID, s.Pending.Card)))
		}
		if err := s.Expire(kind); err != nil {
			return nil, err
		}
		// The current arming was consumed; force a fresh countdown even if the
		// next state happens to share the key.
		t.armed = armKey{}
		t.log.WithField("deadline", kind.String()).Info("deadline expired")
		return events, nil
	})
	if err != nil && engine.KindOf(err) != engine.KindNotFound {
		t.log.WithError(err).Warn("apply expiry")
	}
}

// retireLocked marks the table deleted from inside a mutation. Later
// commands and expiries see NotFound.
func (t *Table) retireLocked() Event {
	t.deleted = true
	return Event{Type: EventTableDeleted}
}

// resume arms the countdown for a table loaded from storage.
func (t *Table) resume(version int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.version = version
	t.armLocked()
}

// shutdown stops the countdown without touching state.
func (t *Table) shutdown() {
	t.timers.Close()
}

func (t *Table) documentLocked() (models.TableDocument, error) {
	t.version++
	raw, err := json.Marshal(t.state)
	if err != nil {
		return models.TableDocument{}, err
	}
	return models.TableDocument{
		ID:        t.state.ID,
		Code:      t.state.Code,
		HostID:    t.state.HostID,
		Phase:     string(t.state.Phase),
		Version:   t.version,
		State:     raw,
		UpdatedAt: t.state.UpdatedAt,
		Actions:   t.pendingRecordsLocked(),
	}, nil
}

// pendingRecordsLocked converts engine log entries not yet handed off.
func (t *Table) pendingRecordsLocked() []models.ActionRecord {
	entries := t.state.Log[t.logged:]
	if len(entries) == 0 {
		return nil
	}
	out := make([]models.ActionRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.ActionRecord{
			TableID:   t.ID,
			Seq:       e.Seq,
			PlayerID:  e.PlayerID,
			Type:      e.Type,
			Payload:   e.Payload,
			Timestamp: e.Timestamp.UnixMilli(),
		})
	}
	return out
}

// newRecordsLocked returns the records produced by this mutation and marks
// them handed off.
func (t *Table) newRecordsLocked() []models.ActionRecord {
	recs := t.pendingRecordsLocked()
	t.logged = len(t.state.Log)
	return recs
}

// publish sends audit records to the historian without blocking the caller.
func (t *Table) publish(records []models.ActionRecord) {
	if t.deps.publisher == nil || len(records) == 0 {
		return
	}
	go func() {
		for _, rec := range records {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := t.deps.publisher.PublishAction(ctx, rec)
			cancel()
			if err != nil {
				t.log.WithError(err).WithField("seq", rec.Seq).Warn("publish action")
			}
		}
	}()
}
