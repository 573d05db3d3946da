package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jack/shortlink-analytics/internal/geo"
	"github.com/jack/shortlink-analytics/internal/model"
	"github.com/jack/shortlink-analytics/internal/repository"
	"golang.org/x/sync/singleflight"
)

// MappingCache holds mapping headers in front of the store. A nil result
// with a nil error is a miss.
type MappingCache interface {
	GetShortURL(ctx context.Context, shortCode string) (*model.ShortURL, error)
	SetShortURL(ctx context.Context, url *model.ShortURL) error
}

// ResolveRequest describes one visit to a short link.
type ResolveRequest struct {
	Shortcode string
	CallerIP  string
	Referrer  string
	UserAgent string
}

type Resolver struct {
	store   repository.MappingStore
	cache   MappingCache
	locator geo.Locator
	now     Clock
	group   singleflight.Group
}

// NewResolver builds a Resolver. cache may be nil; locator nil means no geo lookup.
func NewResolver(store repository.MappingStore, cache MappingCache, locator geo.Locator, now Clock) *Resolver {
	if locator == nil {
		locator = geo.None{}
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		store:   store,
		cache:   cache,
		locator: locator,
		now:     now,
	}
}

// Resolve returns the target URL of an active mapping and records one click.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (string, error) {
	url, err := r.lookup(ctx, req.Shortcode)
	if err != nil {
		return "", err
	}

	now := r.now().UTC()
	if url.IsExpiredAt(now) {
		return "", ErrExpired
	}

	location, err := r.locator.Lookup(ctx, req.CallerIP)
	if err != nil {
		log.Printf("geo lookup failed: ip=%s err=%v", req.CallerIP, err)
		location = model.Geo{}
	}

	click := &model.ClickEvent{
		Timestamp: now,
		Referrer:  req.Referrer,
		UserAgent: req.UserAgent,
		SourceIP:  req.CallerIP,
		Geo:       location,
	}
	if err := r.store.AppendClick(ctx, req.Shortcode, click); err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to record click: %w", err)
	}

	return url.TargetURL, nil
}

// lookup reads the mapping header through the cache. Concurrent misses for
// the same code share one store read; that read is detached from any single
// caller's cancellation, and each caller stops waiting when its own ctx ends.
func (r *Resolver) lookup(ctx context.Context, shortCode string) (*model.ShortURL, error) {
	if r.cache != nil {
		cached, err := r.cache.GetShortURL(ctx, shortCode)
		if err != nil {
			log.Printf("cache get url failed: shortCode=%s err=%v", shortCode, err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(shortCode, func() (any, error) {
		url, err := r.store.FindByCode(shared, shortCode)
		if err != nil {
			return nil, err
		}
		header := url.Header()

		if r.cache != nil {
			if err := r.cache.SetShortURL(shared, header); err != nil {
				log.Printf("cache set url failed: shortCode=%s err=%v", shortCode, err)
			}
		}
		return header, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, repository.ErrURLNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("failed to find short url: %w", res.Err)
		}
		return res.Val.(*model.ShortURL), nil
	}
}
