package cache

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	CategoryTTL    = time.Hour
	WishlistTTL    = 10 * time.Minute
	RecommendedTTL = 5 * time.Minute
)

// Cache est un cache-aside JSON au-dessus de Redis. Un *Cache nil est
// valide : toutes les méthodes deviennent des no-ops, le moteur fonctionne
// alors sans cache.
type Cache struct {
	rdb *redis.Client
}

// Connect ouvre la connexion Redis si REDIS_HOST est configuré.
func Connect(ctx context.Context) *Cache {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		log.Println("⚠️ REDIS_HOST non configuré — cache désactivé")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     host,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Println("⚠️ Redis injoignable — cache désactivé:", err)
		return nil
	}

	log.Println("✅ Connecté à Redis")
	return &Cache{rdb: rdb}
}

// GetJSON remplit v depuis le cache et retourne vrai en cas de hit.
func (c *Cache) GetJSON(ctx context.Context, key string, v any) bool {
	if c == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(data), v) == nil
}

// SetJSON met en cache, silencieusement : une erreur de cache ne doit jamais
// faire échouer la requête.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		c.rdb.Set(ctx, key, data, ttl)
	}
}

// Del invalide une ou plusieurs clés.
func (c *Cache) Del(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	c.rdb.Del(ctx, keys...)
}

// ----- Compteurs (rate limiting) -----

// GetInt lit un compteur ; clé absente ou cache désactivé → 0.
func (c *Cache) GetInt(ctx context.Context, key string) int {
	if c == nil {
		return 0
	}
	n, _ := c.rdb.Get(ctx, key).Int()
	return n
}

// Incr incrémente un compteur et rafraîchit son expiration.
func (c *Cache) Incr(ctx context.Context, key string, ttl time.Duration) {
	if c == nil {
		return
	}
	pipe := c.rdb.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	pipe.Exec(ctx)
}

// SetFlag pose un marqueur avec expiration (cooldown).
func (c *Cache) SetFlag(ctx context.Context, key string, ttl time.Duration) {
	if c == nil {
		return
	}
	c.rdb.Set(ctx, key, "1", ttl)
}

// Exists teste la présence d'une clé.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	if c == nil {
		return false
	}
	return c.rdb.Exists(ctx, key).Val() > 0
}

// TTL retourne la durée de vie restante d'une clé.
func (c *Cache) TTL(ctx context.Context, key string) time.Duration {
	if c == nil {
		return 0
	}
	return c.rdb.TTL(ctx, key).Val()
}
