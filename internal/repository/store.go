package repository

import (
	"context"
	"errors"

	"github.com/jack/shortlink-analytics/internal/model"
)

var (
	ErrURLNotFound     = errors.New("url not found")
	ErrShortcodeExists = errors.New("shortcode already exists")
)

// MappingStore persists shortcode mappings and their click logs.
// Implementations must be safe for concurrent use.
type MappingStore interface {
	// CreateIfAbsent inserts the mapping unless its shortcode is taken, in which case
	// it returns ErrShortcodeExists. The uniqueness check and the insert are one atomic step.
	CreateIfAbsent(ctx context.Context, url *model.ShortURL) error

	// FindByCode returns the mapping with its clicks in insertion order, or ErrURLNotFound.
	FindByCode(ctx context.Context, shortCode string) (*model.ShortURL, error)

	// AppendClick atomically adds one click to the mapping's log, or returns ErrURLNotFound.
	AppendClick(ctx context.Context, shortCode string, click *model.ClickEvent) error

	Health(ctx context.Context) error
	Close()
}
