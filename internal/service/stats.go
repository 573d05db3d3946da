package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jack/shortlink-analytics/internal/model"
	"github.com/jack/shortlink-analytics/internal/repository"
)

type StatsProjector struct {
	store repository.MappingStore
	now   Clock
}

func NewStatsProjector(store repository.MappingStore, now Clock) *StatsProjector {
	if now == nil {
		now = time.Now
	}
	return &StatsProjector{store: store, now: now}
}

// Project builds the stats view of a mapping. Clicks are returned newest
// first; the stored log keeps its arrival order.
func (p *StatsProjector) Project(ctx context.Context, shortCode string) (*model.StatsView, error) {
	url, err := p.store.FindByCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find short url: %w", err)
	}

	clicks := make([]model.ClickView, 0, len(url.Clicks))
	for _, c := range url.Clicks {
		referrer := c.Referrer
		if referrer == "" {
			referrer = model.DirectReferrer
		}
		clicks = append(clicks, model.ClickView{
			Timestamp: c.Timestamp,
			Referrer:  referrer,
			UserAgent: c.UserAgent,
			Location:  c.Geo,
		})
	}
	sort.SliceStable(clicks, func(i, j int) bool {
		return clicks[i].Timestamp.After(clicks[j].Timestamp)
	})

	return &model.StatsView{
		ShortCode:   url.ShortCode,
		TargetURL:   url.TargetURL,
		CreatedAt:   url.CreatedAt,
		ExpiresAt:   url.ExpiresAt,
		Expired:     url.IsExpiredAt(p.now()),
		TotalClicks: len(url.Clicks),
		Clicks:      clicks,
	}, nil
}
