// Package cache holds the Redis-backed helpers: the action historian queue,
// the public event mirror and the profile cache.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ActionQueueKey is the list the historian consumer drains.
const ActionQueueKey = "showtime:actions"

// NewClient connects to addr and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

func eventChannel(tableID string) string { return "table:" + tableID + ":events" }

func profileKey(playerID string) string { return "profile:" + playerID }
