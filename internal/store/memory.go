package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/serroba/shortlink/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository. Token
// uniqueness is enforced under its write lock.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	links  map[shortener.Token]*shortener.Link
}

// NewMemoryStore creates a new in-memory link store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links: make(map[shortener.Token]*shortener.Link),
	}
}

func (m *MemoryStore) Insert(_ context.Context, link *shortener.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[link.Token]; ok {
		return shortener.ErrTokenConflict
	}

	m.nextID++
	link.ID = m.nextID
	link.CreatedAt = time.Now()

	m.links[link.Token] = copyLink(link)

	return nil
}

func (m *MemoryStore) FindUnexpired(_ context.Context, token shortener.Token, now time.Time) (*shortener.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[token]
	if !ok || link.ExpiredAt(now) {
		return nil, shortener.ErrNotFound
	}

	return copyLink(link), nil
}

func (m *MemoryStore) FindByToken(_ context.Context, token shortener.Token) (*shortener.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[token]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return copyLink(link), nil
}

func (m *MemoryStore) FindByDestination(
	_ context.Context, destinationURL string, owner shortener.Owner,
) (*shortener.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *shortener.Link

	for _, link := range m.links {
		if link.DestinationURL != destinationURL || link.Owner != owner {
			continue
		}

		if found == nil || link.ID < found.ID {
			found = link
		}
	}

	if found == nil {
		return nil, shortener.ErrNotFound
	}

	return copyLink(found), nil
}

func (m *MemoryStore) ListByOwner(_ context.Context, owner shortener.Owner) ([]*shortener.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	links := make([]*shortener.Link, 0)

	for _, link := range m.links {
		if link.Owner == owner {
			links = append(links, copyLink(link))
		}
	}

	slices.SortFunc(links, func(a, b *shortener.Link) int {
		return int(b.ID - a.ID)
	})

	return links, nil
}

func (m *MemoryStore) TokenExists(_ context.Context, token shortener.Token) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.links[token]

	return ok, nil
}

func (m *MemoryStore) IncrementUseCount(_ context.Context, token shortener.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[token]
	if !ok {
		return shortener.ErrNotFound
	}

	link.UseCount++

	return nil
}

func copyLink(link *shortener.Link) *shortener.Link {
	c := *link
	if link.ExpiresAt != nil {
		t := *link.ExpiresAt
		c.ExpiresAt = &t
	}

	return &c
}

// Compile-time check.
var _ shortener.Repository = (*MemoryStore)(nil)
