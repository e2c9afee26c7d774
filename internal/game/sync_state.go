// internal/game/sync_state.go
package game

import "github.com/jason-s-yu/showtime/engine"

// enqueueSyncLocked queues a tableStateChanged event for every seated player,
// each carrying that player's own projection. Assumes mu is held.
func (t *Table) enqueueSyncLocked() {
	for _, seat := range t.state.Seats {
		view := t.state.View(seat.PlayerID)
		t.enqueueLocked(private(seat.PlayerID, Event{Type: EventTableStateChanged, State: &view}))
	}
}

// SyncEvent builds a one-off state sync for viewerID, used when a subscriber
// connects mid-game. The event carries no seq.
func (t *Table) SyncEvent(viewerID string) (Event, error) {
	var ev Event
	err := t.read(func(s *engine.Table) {
		view := s.View(viewerID)
		rem := t.timers.Remaining()
		ev = Event{Type: EventTableStateChanged, TableID: s.ID, State: &view, Timer: &rem}
	})
	return ev, err
}
