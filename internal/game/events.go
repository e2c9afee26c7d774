// internal/game/events.go
package game

import (
	"github.com/jason-s-yu/showtime/engine"
	"github.com/jason-s-yu/showtime/internal/timer"
)

// EventType names an outbound table event.
type EventType string

const (
	EventTableStateChanged EventType = "tableStateChanged" // Private: per-viewer projection.
	EventTurnChanged       EventType = "turnChanged"
	EventTimerTick         EventType = "timerTick"
	EventCardDrawn         EventType = "cardDrawn" // Public copy is opaque; the drawer gets a private ranked copy.
	EventCardDiscarded     EventType = "cardDiscarded"
	EventPowerResolved     EventType = "powerResolved" // Public summary; peek results go privately to the requester.
	EventPlayerCalled      EventType = "playerCalled"
	EventGameFinished      EventType = "gameFinished"
	EventTableDeleted      EventType = "tableDeleted"
	EventError             EventType = "error" // Private: a rejected command, sent by the transport.
)

// EventUser identifies a player within an event.
type EventUser struct {
	ID string `json:"id"`
}

// EventCard identifies a card within an event, with rank only when the
// recipient may know it.
type EventCard struct {
	ID      string      `json:"id,omitempty"`
	Rank    engine.Rank `json:"rank,omitempty"`
	Ordinal *int        `json:"ordinal,omitempty"`
	Slot    *int        `json:"slot,omitempty"`
	User    *EventUser  `json:"user,omitempty"`
}

// Event is the envelope delivered to a table's subscribers.
type Event struct {
	Type    EventType `json:"type"`
	TableID string    `json:"tableId"`
	// Seq orders events within a table.
	Seq uint64 `json:"seq"`

	User  *EventUser `json:"user,omitempty"`
	Card  *EventCard `json:"card,omitempty"`
	Card1 *EventCard `json:"card1,omitempty"`
	Card2 *EventCard `json:"card2,omitempty"`

	Payload map[string]any    `json:"payload,omitempty"`
	State   *engine.TableView `json:"state,omitempty"`
	Timer   *timer.Remaining  `json:"timer,omitempty"`
}

// Broadcaster fans events out to a table's subscribers. Implementations must
// not call back into the Manager synchronously.
type Broadcaster interface {
	Broadcast(tableID string, ev Event)
	SendTo(tableID, playerID string, ev Event)
}

// outbound is a queued event; an empty to means every subscriber.
type outbound struct {
	to string
	ev Event
}

func public(ev Event) outbound { return outbound{ev: ev} }
func private(to string, ev Event) outbound { return outbound{to: to, ev: ev} }
func user(id string) *EventUser { return &EventUser{ID: id} }
func intRef(i int) *int { return &i }

// Fanout delivers every event to each of its broadcasters in order.
type Fanout []Broadcaster

func (f Fanout) Broadcast(tableID string, ev Event) {
	for _, b := range f {
		b.Broadcast(tableID, ev)
	}
}

func (f Fanout) SendTo(tableID, playerID string, ev Event) {
	for _, b := range f {
		b.SendTo(tableID, playerID, ev)
	}
}
