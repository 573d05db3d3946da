package geo

import (
	"context"
	"log"
	"time"

	"github.com/jack/shortlink-analytics/internal/model"
)

// Cache stores lookups per IP.
type Cache interface {
	GetGeo(ctx context.Context, ip string) (model.Geo, bool, error)
	SetGeo(ctx context.Context, ip string, g model.Geo, ttl time.Duration) error
}

// Cached wraps a Locator with a per-IP cache. Empty results are cached as
// well so repeat visitors from unknown addresses do not hit the provider.
// Failed lookups are not cached.
type Cached struct {
	next  Locator
	cache Cache
	ttl   time.Duration
}

func NewCached(next Locator, cache Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: cache, ttl: ttl}
}

func (c *Cached) Lookup(ctx context.Context, ip string) (model.Geo, error) {
	if ip == "" || isPrivateIP(ip) {
		return model.Geo{}, nil
	}

	g, ok, err := c.cache.GetGeo(ctx, ip)
	if err != nil {
		log.Printf("cache get geo failed: ip=%s err=%v", ip, err)
	}
	if ok {
		return g, nil
	}

	g, err = c.next.Lookup(ctx, ip)
	if err != nil {
		return model.Geo{}, err
	}

	if err := c.cache.SetGeo(ctx, ip, g, c.ttl); err != nil {
		log.Printf("cache set geo failed: ip=%s err=%v", ip, err)
	}
	return g, nil
}
