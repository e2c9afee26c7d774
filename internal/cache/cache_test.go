package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jason-s-yu/showtime/internal/game"
	"github.com/jason-s-yu/showtime/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestHistorianQueuesRecords(t *testing.T) {
	mr, rdb := newRedis(t)
	h := NewHistorian(rdb)
	ctx := context.Background()

	require.NoError(t, h.PublishAction(ctx, models.ActionRecord{TableID: "t1", Seq: 1, Type: "table_created", Timestamp: 5}))
	require.NoError(t, h.PublishAction(ctx, models.ActionRecord{TableID: "t1", Seq: 2, PlayerID: "p1", Type: "join"}))

	items, err := mr.List(ActionQueueKey)
	require.NoError(t, err)
	require.Len(t, items, 2)
	var first models.ActionRecord
	require.NoError(t, json.Unmarshal([]byte(items[0]), &first))
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, "table_created", first.Type)
	assert.NotNil(t, first.Payload, "payload is always an object")

	mr.SetError("LOADING")
	assert.Error(t, h.PublishAction(ctx, models.ActionRecord{TableID: "t1", Seq: 3}))
}

func TestNilHistorianIsNoop(t *testing.T) {
	var h *Historian
	assert.NoError(t, h.PublishAction(context.Background(), models.ActionRecord{}))
}

func TestMirrorPublishesPublicEvents(t *testing.T) {
	_, rdb := newRedis(t)
	m := NewMirror(rdb)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := m.Subscribe(ctx, "t1")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	m.SendTo("t1", "p1", game.Event{Type: game.EventCardDrawn, Seq: 1})
	m.Broadcast("t1", game.Event{Type: game.EventTimerTick, Seq: 2})
	m.Broadcast("t1", game.Event{Type: game.EventTurnChanged, TableID: "t1", Seq: 3, User: &game.EventUser{ID: "p2"}})

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "table:t1:events", msg.Channel)
	var ev game.Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
	assert.Equal(t, game.EventTurnChanged, ev.Type, "private and tick events are not mirrored")
	assert.Equal(t, uint64(3), ev.Seq)
}

func TestProfileCacheDegrades(t *testing.T) {
	mr, rdb := newRedis(t)
	p := NewProfileCache(rdb, time.Minute)
	ctx := context.Background()

	assert.Equal(t, Profile{DisplayName: "fallback"}, p.Lookup(ctx, "u1", "fallback"))

	require.NoError(t, p.Remember(ctx, models.Identity{ID: "u1", DisplayName: "Ada"}, 1350))
	assert.Equal(t, Profile{DisplayName: "Ada", Rating: 1350}, p.Lookup(ctx, "u1", "fallback"))
	assert.Equal(t, "Ada", mr.HGet("profile:u1", "name"))

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, "fallback", p.Lookup(ctx, "u1", "fallback").DisplayName, "expired profile")

	mr.SetError("READONLY")
	assert.Equal(t, "fallback", p.Lookup(ctx, "u1", "fallback").DisplayName)

	var nilCache *ProfileCache
	assert.Equal(t, "x", nilCache.Lookup(ctx, "u1", "x").DisplayName)
}
