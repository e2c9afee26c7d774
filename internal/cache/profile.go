package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/jason-s-yu/showtime/internal/models"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Profile is the cosmetic data shown next to a seat.
type Profile struct {
	DisplayName string `json:"displayName"`
	Rating      int    `json:"rating,omitempty"`
}

// ProfileCache stores display names and ratings. Lookups are best effort:
// any Redis failure degrades to the caller's fallback.
type ProfileCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProfileCache(rdb *redis.Client, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ProfileCache{rdb: rdb, ttl: ttl}
}

// Remember caches the profile of who for later lookups.
func (p *ProfileCache) Remember(ctx context.Context, who models.Identity, rating int) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	key := profileKey(who.ID)
	pipe := p.rdb.TxPipeline()
	pipe.HSet(ctx, key, "name", who.DisplayName, "rating", rating)
	pipe.Expire(ctx, key, p.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Lookup returns the cached profile, or fallback as the name when nothing
// usable is cached.
func (p *ProfileCache) Lookup(ctx context.Context, playerID, fallback string) Profile {
	out := Profile{DisplayName: fallback}
	if p == nil || p.rdb == nil {
		return out
	}
	vals, err := p.rdb.HMGet(ctx, profileKey(playerID), "name", "rating").Result()
	if err != nil {
		log.WithError(err).WithField("player", playerID).Debug("profile lookup failed")
		return out
	}
	if name, ok := vals[0].(string); ok && name != "" {
		out.DisplayName = name
	}
	if r, ok := vals[1].(string); ok {
		if n, err := strconv.Atoi(r); err == nil {
			out.Rating = n
		}
	}
	return out
}
