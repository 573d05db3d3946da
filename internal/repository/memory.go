package repository

import (
	"context"
	"sync"

	"github.com/jack/shortlink-analytics/internal/model"
)

// MemoryRepository keeps mappings in process memory. It backs tests and
// single-process development runs; data is lost on restart.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	urls   map[string]*model.ShortURL
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{urls: make(map[string]*model.ShortURL)}
}

func (r *MemoryRepository) CreateIfAbsent(_ context.Context, url *model.ShortURL) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.urls[url.ShortCode]; exists {
		return ErrShortcodeExists
	}

	r.nextID++
	url.ID = r.nextID

	stored := url.Header()
	r.urls[url.ShortCode] = stored
	return nil
}

func (r *MemoryRepository) FindByCode(_ context.Context, shortCode string) (*model.ShortURL, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.urls[shortCode]
	if !ok {
		return nil, ErrURLNotFound
	}

	out := stored.Header()
	out.Clicks = make([]model.ClickEvent, len(stored.Clicks))
	copy(out.Clicks, stored.Clicks)
	return out, nil
}

func (r *MemoryRepository) AppendClick(_ context.Context, shortCode string, click *model.ClickEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.urls[shortCode]
	if !ok {
		return ErrURLNotFound
	}

	stored.Clicks = append(stored.Clicks, *click)
	return nil
}

func (r *MemoryRepository) Health(_ context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() {}

var _ MappingStore = (*MemoryRepository)(nil)
