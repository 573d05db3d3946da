package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jack/shortlink-analytics/internal/model"
	"github.com/jack/shortlink-analytics/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generatedCode = regexp.MustCompile(`^[0-9A-Za-z]{7}$`)

func TestAllocate_DefaultValidity(t *testing.T) {
	e := newEngine(t)

	url, err := e.allocator.Allocate(context.Background(), AllocateRequest{TargetURL: "https://example.com/a"})
	require.NoError(t, err)

	assert.Regexp(t, generatedCode, url.ShortCode)
	assert.Equal(t, "https://example.com/a", url.TargetURL)
	assert.Equal(t, e.clock.Now(), url.CreatedAt)
	assert.Equal(t, 30*time.Minute, url.ExpiresAt.Sub(url.CreatedAt))
}

func TestAllocate_ExplicitValidity(t *testing.T) {
	e := newEngine(t)

	url, err := e.allocator.Allocate(context.Background(), AllocateRequest{
		TargetURL:       "http://example.com/x",
		ValidityMinutes: intPtr(90),
	})
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, url.ExpiresAt.Sub(url.CreatedAt))
}

func TestAllocate_RequestedShortcode(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	url, err := e.allocator.Allocate(ctx, AllocateRequest{
		TargetURL: "https://example.com/custom",
		Shortcode: strPtr("myLink42"),
	})
	require.NoError(t, err)
	assert.Equal(t, "myLink42", url.ShortCode)

	stored, err := e.store.FindByCode(ctx, "myLink42")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/custom", stored.TargetURL)

	_, err = e.allocator.Allocate(ctx, AllocateRequest{
		TargetURL: "https://example.com/other",
		Shortcode: strPtr("myLink42"),
	})
	assert.ErrorIs(t, err, ErrShortcodeTaken)

	stored, err = e.store.FindByCode(ctx, "myLink42")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/custom", stored.TargetURL)
}

func TestAllocate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		req  AllocateRequest
		want error
	}{
		{"ftp scheme", AllocateRequest{TargetURL: "ftp://bad", ValidityMinutes: intPtr(30)}, ErrInvalidURL},
		{"relative url", AllocateRequest{TargetURL: "/just/a/path"}, ErrInvalidURL},
		{"empty url", AllocateRequest{TargetURL: ""}, ErrInvalidURL},
		{"zero validity", AllocateRequest{TargetURL: "https://example.com/b", ValidityMinutes: intPtr(0)}, ErrInvalidValidity},
		{"validity overflowing expiry", AllocateRequest{TargetURL: "https://example.com/b", ValidityMinutes: intPtr(200_000_000)}, ErrInvalidValidity},
		{"negative validity", AllocateRequest{TargetURL: "https://example.com/b", ValidityMinutes: intPtr(-5)}, ErrInvalidValidity},
		{"short code too short", AllocateRequest{TargetURL: "https://example.com/c", ValidityMinutes: intPtr(30), Shortcode: strPtr("ab")}, ErrInvalidShortcode},
		{"short code too long", AllocateRequest{TargetURL: "https://example.com/c", Shortcode: strPtr("abcdefghijklmnopqrstu")}, ErrInvalidShortcode},
		{"short code punctuation", AllocateRequest{TargetURL: "https://example.com/c", Shortcode: strPtr("my-link")}, ErrInvalidShortcode},
		{"empty short code", AllocateRequest{TargetURL: "https://example.com/c", Shortcode: strPtr("")}, ErrInvalidShortcode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			_, err := e.allocator.Allocate(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAllocate_URLCheckedBeforeValidity(t *testing.T) {
	e := newEngine(t)
	_, err := e.allocator.Allocate(context.Background(), AllocateRequest{
		TargetURL:       "ftp://bad",
		ValidityMinutes: intPtr(0),
		Shortcode:       strPtr("x"),
	})
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestAllocate_RetriesOnCollision(t *testing.T) {
	store := repository.NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, store.CreateIfAbsent(ctx, &model.ShortURL{ShortCode: "taken01", TargetURL: "https://example.com"}))
	require.NoError(t, store.CreateIfAbsent(ctx, &model.ShortURL{ShortCode: "taken02", TargetURL: "https://example.com"}))

	gen := &sequenceGenerator{codes: []string{"taken01", "taken02", "fresh03"}}
	a := NewAllocator(store, gen, newFakeClock().Now, 30, 5)

	url, err := a.Allocate(ctx, AllocateRequest{TargetURL: "https://example.com/new"})
	require.NoError(t, err)
	assert.Equal(t, "fresh03", url.ShortCode)
	assert.Equal(t, 3, gen.calls)
}

func TestAllocate_Exhausted(t *testing.T) {
	store := repository.NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, store.CreateIfAbsent(ctx, &model.ShortURL{ShortCode: "always1", TargetURL: "https://example.com"}))

	gen := &sequenceGenerator{codes: []string{"always1"}}
	a := NewAllocator(store, gen, newFakeClock().Now, 30, 5)

	_, err := a.Allocate(ctx, AllocateRequest{TargetURL: "https://example.com/new"})
	assert.ErrorIs(t, err, ErrAllocationExhausted)
	assert.Equal(t, 5, gen.calls)
}

func TestAllocate_StoreFailure(t *testing.T) {
	a := NewAllocator(failingStore{err: errStoreDown}, fixedGenerator{code: "abc1234"}, nil, 30, 5)

	_, err := a.Allocate(context.Background(), AllocateRequest{TargetURL: "https://example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, ErrAllocationExhausted)

	_, err = a.Allocate(context.Background(), AllocateRequest{TargetURL: "https://example.com", Shortcode: strPtr("mine")})
	assert.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, ErrShortcodeTaken)
}

func TestAllocate_ConcurrentSameShortcode(t *testing.T) {
	e := newEngine(t)

	const workers = 2
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.allocator.Allocate(context.Background(), AllocateRequest{
				TargetURL: "https://example.com/same",
				Shortcode: strPtr("same"),
			})
		}(i)
	}
	wg.Wait()

	var ok, taken int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrShortcodeTaken):
			taken++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, taken)
}

func TestAllocate_ThenResolve(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	for _, target := range []string{"https://example.com", "http://example.com:8080/a?b=c#d", "HTTPS://EXAMPLE.COM/Upper"} {
		url, err := e.allocator.Allocate(ctx, AllocateRequest{TargetURL: target, ValidityMinutes: intPtr(5)})
		require.NoError(t, err)

		got, err := e.resolver.Resolve(ctx, ResolveRequest{Shortcode: url.ShortCode})
		require.NoError(t, err)
		assert.Equal(t, target, got)
	}
}

func TestAllocate_MaxValidity(t *testing.T) {
	e := newEngine(t)

	url, err := e.allocator.Allocate(context.Background(), AllocateRequest{
		TargetURL:       "https://example.com/forever",
		ValidityMinutes: intPtr(int(MaxValidityMinutes)),
	})
	require.NoError(t, err)
	assert.True(t, url.ExpiresAt.After(url.CreatedAt))
	assert.Equal(t, time.Duration(MaxValidityMinutes)*time.Minute, url.ExpiresAt.Sub(url.CreatedAt))

	_, err = e.allocator.Allocate(context.Background(), AllocateRequest{
		TargetURL:       "https://example.com/forever",
		ValidityMinutes: intPtr(int(MaxValidityMinutes) + 1),
	})
	assert.ErrorIs(t, err, ErrInvalidValidity)
}
