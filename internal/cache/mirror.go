package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jason-s-yu/showtime/internal/game"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Mirror republishes public table events on a Redis channel per table so
// other processes (spectator fan-out, analytics) can follow a table.
// Private events never leave the process.
type Mirror struct {
	rdb     *redis.Client
	timeout time.Duration
}

func NewMirror(rdb *redis.Client) *Mirror {
	return &Mirror{rdb: rdb, timeout: time.Second}
}

// Broadcast publishes ev on the table's channel. Failures are logged.
func (m *Mirror) Broadcast(tableID string, ev game.Event) {
	if ev.Type == game.EventTimerTick {
		return // too chatty to mirror
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).WithField("table", tableID).Warn("encode mirrored event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.rdb.Publish(ctx, eventChannel(tableID), raw).Err(); err != nil {
		log.WithError(err).WithFields(log.Fields{"table": tableID, "type": ev.Type}).Warn("mirror event")
	}
}

// SendTo ignores private events.
func (m *Mirror) SendTo(string, string, game.Event) {}

// Subscribe follows a table's mirrored events. The caller closes the
// returned PubSub.
func (m *Mirror) Subscribe(ctx context.Context, tableID string) *redis.PubSub {
	return m.rdb.Subscribe(ctx, eventChannel(tableID))
}
