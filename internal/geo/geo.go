// Package geo resolves caller IP addresses to a coarse location.
package geo

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/jack/shortlink-analytics/internal/config"
	"github.com/jack/shortlink-analytics/internal/model"
)

// Locator looks up the location of an IP address. An unknown address yields
// an empty Geo and a nil error; errors are reserved for lookup failures.
type Locator interface {
	Lookup(ctx context.Context, ip string) (model.Geo, error)
}

// None never knows where anyone is.
type None struct{}

func (None) Lookup(context.Context, string) (model.Geo, error) {
	return model.Geo{}, nil
}

// New builds the Locator selected by cfg.Provider. Callers owning a
// MaxMind locator should Close it on shutdown.
func New(cfg *config.GeoConfig) (Locator, error) {
	switch cfg.Provider {
	case config.GeoProviderNone:
		return None{}, nil
	case config.GeoProviderIPWhois:
		return NewIPWhois(cfg.IPWhoisURL, &http.Client{Timeout: cfg.Timeout}), nil
	case config.GeoProviderMaxMind:
		l, err := OpenMaxMind(cfg.MaxMindPath)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown geo provider %q", cfg.Provider)
	}
}

// isPrivateIP reports addresses that no public database can place.
// Unparseable input counts as private.
func isPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() ||
		parsed.IsPrivate() ||
		parsed.IsLinkLocalUnicast() ||
		parsed.IsUnspecified()
}
