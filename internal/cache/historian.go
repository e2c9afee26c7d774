package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jason-s-yu/showtime/internal/models"
	"github.com/redis/go-redis/v9"
)

// Historian pushes audit records onto the historian queue.
type Historian struct {
	rdb *redis.Client
	key string
}

func NewHistorian(rdb *redis.Client) *Historian {
	return &Historian{rdb: rdb, key: ActionQueueKey}
}

// PublishAction appends rec to the queue as JSON.
func (h *Historian) PublishAction(ctx context.Context, rec models.ActionRecord) error {
	if h == nil || h.rdb == nil {
		return nil
	}
	if rec.Payload == nil {
		rec.Payload = map[string]any{}
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode action %s/%d: %w", rec.TableID, rec.Seq, err)
	}
	return h.rdb.RPush(ctx, h.key, raw).Err()
}
