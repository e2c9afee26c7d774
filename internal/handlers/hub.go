package handlers

import (
	"sync"

	"github.com/jason-s-yu/showtime/internal/game"
	log "github.com/sirupsen/logrus"
)

const defaultSendBuffer = 64

// Hub tracks websocket subscribers per table and implements
// game.Broadcaster. Delivery never blocks: a subscriber whose buffer is
// full is disconnected and must resync.
type Hub struct {
	mu      sync.RWMutex
	tables  map[string]map[*subscriber]struct{}
	bufSize int
}

type subscriber struct {
	tableID  string
	playerID string
	send     chan game.Event
	slow     chan struct{}
	slowOnce sync.Once
}

func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = defaultSendBuffer
	}
	return &Hub{tables: make(map[string]map[*subscriber]struct{}), bufSize: bufSize}
}

func (h *Hub) register(tableID, playerID string) *subscriber {
	s := &subscriber{
		tableID:  tableID,
		playerID: playerID,
		send:     make(chan game.Event, h.bufSize),
		slow:     make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tables[tableID] == nil {
		h.tables[tableID] = make(map[*subscriber]struct{})
	}
	h.tables[tableID][s] = struct{}{}
	return s
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.tables[s.tableID]
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.tables, s.tableID)
	}
}

// Subscribers returns how many connections follow tableID.
func (h *Hub) Subscribers(tableID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tables[tableID])
}

func (h *Hub) Broadcast(tableID string, ev game.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.tables[tableID] {
		s.deliver(ev)
	}
}

func (h *Hub) SendTo(tableID, playerID string, ev game.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.tables[tableID] {
		if s.playerID == playerID {
			s.deliver(ev)
		}
	}
}

func (s *subscriber) deliver(ev game.Event) {
	select {
	case s.send <- ev:
	default:
		s.slowOnce.Do(func() {
			log.WithFields(log.Fields{"table": s.tableID, "player": s.playerID}).Warn("subscriber too slow, disconnecting")
			close(s.slow)
		})
	}
}
