package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/jack/shortlink-analytics/internal/model"
	"github.com/oschwald/geoip2-golang"
)

// cityReader is the part of *geoip2.Reader the locator uses.
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// MaxMind reads a local GeoLite2/GeoIP2 City database.
type MaxMind struct {
	db cityReader
}

func OpenMaxMind(path string) (*MaxMind, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open maxmind database: %w", err)
	}
	return &MaxMind{db: db}, nil
}

// NewMaxMindFromBytes loads a database already held in memory.
func NewMaxMindFromBytes(data []byte) (*MaxMind, error) {
	db, err := geoip2.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load maxmind database: %w", err)
	}
	return &MaxMind{db: db}, nil
}

// Lookup returns an empty Geo for addresses missing from the database;
// the reader reports those as a zero record, not an error.
func (l *MaxMind) Lookup(_ context.Context, ip string) (model.Geo, error) {
	if ip == "" || isPrivateIP(ip) {
		return model.Geo{}, nil
	}

	record, err := l.db.City(net.ParseIP(ip))
	if err != nil {
		return model.Geo{}, fmt.Errorf("failed to look up %s: %w", ip, err)
	}

	g := model.Geo{
		Country: record.Country.IsoCode,
		City:    record.City.Names["en"],
	}
	if len(record.Subdivisions) > 0 {
		g.Region = record.Subdivisions[0].IsoCode
	}
	return g, nil
}

func (l *MaxMind) Close() error {
	return l.db.Close()
}
