package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jack/shortlink-analytics/internal/config"
	"github.com/jack/shortlink-analytics/internal/model"
	"github.com/jack/shortlink-analytics/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"172.32.0.1", false},
		{"192.168.1.1", true},
		{"169.254.0.5", true},
		{"fd00::1", true},
		{"not-an-ip", true},
		{"8.8.8.8", false},
		{"2001:4860:4860::8888", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, isPrivateIP(tt.ip))
		})
	}
}

func TestIPWhois_Lookup(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/8.8.8.8":
			_, _ = w.Write([]byte(`{"success":true,"country_code":"us","region":"California","city":"Mountain View"}`))
		case "/1.1.1.1":
			_, _ = w.Write([]byte(`{"success":false,"message":"Reserved range"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	l := NewIPWhois(srv.URL, srv.Client())
	ctx := context.Background()

	g, err := l.Lookup(ctx, "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, model.Geo{Country: "US", Region: "California", City: "Mountain View"}, g)

	g, err = l.Lookup(ctx, "1.1.1.1")
	require.NoError(t, err)
	assert.True(t, g.IsZero())

	_, err = l.Lookup(ctx, "9.9.9.9")
	assert.Error(t, err)

	before := hits.Load()
	g, err = l.Lookup(ctx, "192.168.0.10")
	require.NoError(t, err)
	assert.True(t, g.IsZero())
	assert.Equal(t, before, hits.Load(), "private addresses must not reach the provider")
}

func TestIPWhois_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	l := NewIPWhois(srv.URL+"/", &http.Client{Timeout: 50 * time.Millisecond})
	_, err := l.Lookup(context.Background(), "8.8.8.8")
	assert.Error(t, err)
}

type countingLocator struct {
	calls atomic.Int32
	geo   model.Geo
	err   error
}

func (l *countingLocator) Lookup(context.Context, string) (model.Geo, error) {
	l.calls.Add(1)
	return l.geo, l.err
}

func newRedisCache(t *testing.T) (*repository.RedisRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	repo := repository.NewRedisRepositoryWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = repo.Close() })
	return repo, mr
}

func TestCached_Lookup(t *testing.T) {
	cache, _ := newRedisCache(t)
	next := &countingLocator{geo: model.Geo{Country: "FR", City: "Paris"}}
	l := NewCached(next, cache, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		g, err := l.Lookup(ctx, "8.8.4.4")
		require.NoError(t, err)
		assert.Equal(t, "Paris", g.City)
	}
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestCached_CachesEmptyResult(t *testing.T) {
	cache, _ := newRedisCache(t)
	next := &countingLocator{}
	l := NewCached(next, cache, time.Hour)

	_, err := l.Lookup(context.Background(), "8.8.4.4")
	require.NoError(t, err)
	_, err = l.Lookup(context.Background(), "8.8.4.4")
	require.NoError(t, err)

	assert.Equal(t, int32(1), next.calls.Load())
}

func TestCached_DoesNotCacheErrors(t *testing.T) {
	cache, mr := newRedisCache(t)
	next := &countingLocator{err: errors.New("provider down")}
	l := NewCached(next, cache, time.Hour)

	_, err := l.Lookup(context.Background(), "8.8.4.4")
	assert.Error(t, err)
	assert.False(t, mr.Exists("geo:8.8.4.4"))
}

func TestCached_CacheDownFallsThrough(t *testing.T) {
	cache, mr := newRedisCache(t)
	mr.Close()

	next := &countingLocator{geo: model.Geo{Country: "JP"}}
	l := NewCached(next, cache, time.Hour)

	g, err := l.Lookup(context.Background(), "8.8.4.4")
	require.NoError(t, err)
	assert.Equal(t, "JP", g.Country)
}

func TestNew(t *testing.T) {
	l, err := New(&config.GeoConfig{Provider: config.GeoProviderNone})
	require.NoError(t, err)
	assert.IsType(t, None{}, l)

	l, err = New(&config.GeoConfig{Provider: config.GeoProviderIPWhois, IPWhoisURL: "https://ipwho.is", Timeout: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &IPWhois{}, l)

	_, err = New(&config.GeoConfig{Provider: config.GeoProviderMaxMind, MaxMindPath: t.TempDir() + "/missing.mmdb"})
	assert.Error(t, err)

	_, err = New(&config.GeoConfig{Provider: "bogus"})
	assert.Error(t, err)
}
