package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jack/shortlink-analytics/internal/codegen"
	"github.com/jack/shortlink-analytics/internal/model"
	"github.com/jack/shortlink-analytics/internal/repository"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock shared by the services under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fixedGenerator hands out the same code forever.
type fixedGenerator struct{ code string }

func (g fixedGenerator) Generate() string { return g.code }

// sequenceGenerator hands out codes in order, then repeats the last one.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	calls int
}

func (g *sequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.calls++
	return g.codes[i]
}

type stubLocator struct {
	geo model.Geo
	err error
}

func (l stubLocator) Lookup(context.Context, string) (model.Geo, error) {
	return l.geo, l.err
}

// failingStore fails every call with err.
type failingStore struct{ err error }

func (s failingStore) CreateIfAbsent(context.Context, *model.ShortURL) error { return s.err }
func (s failingStore) FindByCode(context.Context, string) (*model.ShortURL, error) {
	return nil, s.err
}
func (s failingStore) AppendClick(context.Context, string, *model.ClickEvent) error { return s.err }
func (s failingStore) Health(context.Context) error                                 { return s.err }
func (s failingStore) Close()                                                       {}

var errStoreDown = errors.New("connection refused")

type engine struct {
	store     *repository.MemoryRepository
	clock     *fakeClock
	allocator *Allocator
	resolver  *Resolver
	stats     *StatsProjector
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	gen, err := codegen.NewGenerator(codegen.DefaultLength)
	require.NoError(t, err)
	store := repository.NewMemoryRepository()
	clock := newFakeClock()
	return &engine{
		store:     store,
		clock:     clock,
		allocator: NewAllocator(store, gen, clock.Now, 30, 5),
		resolver:  NewResolver(store, nil, stubLocator{err: errors.New("lookup failed")}, clock.Now),
		stats:     NewStatsProjector(store, clock.Now),
	}
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
