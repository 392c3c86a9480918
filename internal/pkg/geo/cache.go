package geo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultGeocodeTTL = 30 * 24 * time.Hour

// CachedGeocoder keeps successful lookups in Redis. Cache failures are
// logged and never fail the lookup.
type CachedGeocoder struct {
	next Geocoder
	rdb  redis.Cmdable
	ttl  time.Duration
	log  *zap.Logger
}

func NewCachedGeocoder(next Geocoder, rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) *CachedGeocoder {
	if ttl <= 0 {
		ttl = DefaultGeocodeTTL
	}
	return &CachedGeocoder{next: next, rdb: rdb, ttl: ttl, log: log}
}

func GeocodeCacheKey(address string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(address))))
	return "geo:v1:geocode:" + hex.EncodeToString(sum[:])
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (Point, error) {
	key := GeocodeCacheKey(address)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Point
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil && p.Validate() == nil {
			return p, nil
		}
	case !errors.Is(err, redis.Nil):
		c.log.Warn("geocode cache read failed", zap.Error(err))
	}

	p, err := c.next.Geocode(ctx, address)
	if err != nil {
		return Point{}, err
	}

	if payload, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.log.Warn("geocode cache write failed", zap.Error(err))
		}
	}
	return p, nil
}
