// Package cache provides response caches for routes with server caching enabled.
package cache

import (
	"context"
	"time"

	"github.com/advdv/bcycle"
	"github.com/puzpuzpuz/xsync/v4"
)

// Memory is an in-process [bcycle.Cache]. Expired entries are removed when they are read.
type Memory struct {
	items *xsync.Map[string, *bcycle.CachedResponse]
	now   func() time.Time
}

// NewMemory inits an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{items: xsync.NewMap[string, *bcycle.CachedResponse](), now: time.Now}
}

// Get implements [bcycle.Cache].
func (m *Memory) Get(_ context.Context, key string) (*bcycle.CachedResponse, error) {
	item, ok := m.items.Load(key)
	if !ok {
		return nil, nil
	}

	if !m.now().Before(item.ExpiresAt) {
		m.items.Compute(key, func(cur *bcycle.CachedResponse, loaded bool) (*bcycle.CachedResponse, xsync.ComputeOp) {
			if loaded && cur == item {
				return nil, xsync.DeleteOp
			}
			return cur, xsync.CancelOp
		})
		return nil, nil
	}

	return item, nil
}

// Set implements [bcycle.Cache].
func (m *Memory) Set(_ context.Context, key string, res *bcycle.CachedResponse, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	stored := *res
	stored.ExpiresAt = m.now().Add(ttl)
	m.items.Store(key, &stored)
	return nil
}

// Drop implements [bcycle.Cache].
func (m *Memory) Drop(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

// Len returns the number of stored entries, including expired ones that were not read since.
func (m *Memory) Len() int { return m.items.Size() }

var _ bcycle.Cache = &Memory{}
