package cache

import (
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/obs"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisKeyPrefix = "geocode:"
	DefaultRedisTTL       = 30 * 24 * time.Hour
)

type redisCoordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RedisGeocodeCache stores coordinates as JSON values under prefixed,
// normalized address keys with a TTL.
type RedisGeocodeCache struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func NewRedisGeocodeCache(client *redis.Client, ttl time.Duration) *RedisGeocodeCache {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisGeocodeCache{Client: client, Prefix: DefaultRedisKeyPrefix, TTL: ttl}
}

func (r *RedisGeocodeCache) key(address string) string {
	return r.Prefix + address
}

func (r *RedisGeocodeCache) GetMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.cache.redis.GetMany")(&err)

	if r.Client == nil {
		return nil, errors.New("geocode cache: redis client is nil")
	}

	keys := uniqueKeys(addresses)
	if len(keys) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = r.key(k)
	}

	vals, err := r.Client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: redis mget: %w", err)
	}

	out := make(map[string]domain.Coordinates, len(keys))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var c redisCoordinates
		if err := json.Unmarshal([]byte(s), &c); err != nil {
			// A corrupt entry is treated as a miss and overwritten on the next put.
			log.Printf("geocode cache: bad redis entry key=%s err=%v", redisKeys[i], err)
			continue
		}
		out[keys[i]] = domain.Coordinates{Lat: c.Lat, Lon: c.Lon}
	}

	return out, nil
}

func (r *RedisGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) (err error) {
	defer obs.Time(ctx, "geocode.cache.redis.PutMany")(&err)

	if r.Client == nil {
		return errors.New("geocode cache: redis client is nil")
	}
	if len(results) == 0 {
		return nil
	}

	_, err = r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for addr, c := range results {
			key := normalizeKey(addr)
			if key == "" {
				return errors.New("empty address key")
			}
			b, err := json.Marshal(redisCoordinates{Lat: c.Lat, Lon: c.Lon})
			if err != nil {
				return fmt.Errorf("marshal coordinates: %w", err)
			}
			pipe.Set(ctx, r.key(key), b, r.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert geocode cache: %w", err)
	}
	return nil
}
