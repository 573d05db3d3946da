package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jack/shortlink-analytics/internal/model"
	"github.com/jack/shortlink-analytics/internal/repository"
	"github.com/jack/shortlink-analytics/internal/validator"
)

// MaxValidityMinutes is the longest validity whose expiry still fits in a
// time.Duration (about 292 years).
const MaxValidityMinutes = math.MaxInt64 / int64(time.Minute)

// CodeGenerator yields shortcode candidates.
type CodeGenerator interface {
	Generate() string
}

// AllocateRequest carries a create request. Nil fields take their defaults.
type AllocateRequest struct {
	TargetURL       string
	ValidityMinutes *int
	Shortcode       *string
}

type Allocator struct {
	store           repository.MappingStore
	generator       CodeGenerator
	now             Clock
	defaultValidity time.Duration
	maxAttempts     int
}

func NewAllocator(
	store repository.MappingStore,
	generator CodeGenerator,
	now Clock,
	defaultValidityMinutes int,
	maxAttempts int,
) *Allocator {
	if now == nil {
		now = time.Now
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Allocator{
		store:           store,
		generator:       generator,
		now:             now,
		defaultValidity: time.Duration(defaultValidityMinutes) * time.Minute,
		maxAttempts:     maxAttempts,
	}
}

// Allocate validates the request and stores a new mapping under either the
// requested shortcode or a freshly generated one.
func (a *Allocator) Allocate(ctx context.Context, req AllocateRequest) (*model.ShortURL, error) {
	if !validator.ValidURL(req.TargetURL) {
		return nil, ErrInvalidURL
	}

	validity := a.defaultValidity
	if req.ValidityMinutes != nil {
		if *req.ValidityMinutes <= 0 || int64(*req.ValidityMinutes) > MaxValidityMinutes {
			return nil, ErrInvalidValidity
		}
		validity = time.Duration(*req.ValidityMinutes) * time.Minute
	}

	createdAt := a.now().UTC()
	url := &model.ShortURL{
		TargetURL: req.TargetURL,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(validity),
	}

	if req.Shortcode != nil {
		if !validator.ValidShortcode(*req.Shortcode) {
			return nil, ErrInvalidShortcode
		}
		url.ShortCode = *req.Shortcode

		err := a.store.CreateIfAbsent(ctx, url)
		if errors.Is(err, repository.ErrShortcodeExists) {
			return nil, ErrShortcodeTaken
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store short url: %w", err)
		}
		return url, nil
	}

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		url.ShortCode = a.generator.Generate()

		err := a.store.CreateIfAbsent(ctx, url)
		if err == nil {
			return url, nil
		}
		if !errors.Is(err, repository.ErrShortcodeExists) {
			return nil, fmt.Errorf("failed to store short url: %w", err)
		}
	}

	return nil, ErrAllocationExhausted
}
