// Package fieldcache provides the stores behind field discovery.
package fieldcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rpattn/ckanbulk/internal/domain"
)

const (
	DefaultSize = 256
	DefaultTTL  = time.Hour
)

// Memory is an in-process LRU with per-entry expiry.
type Memory struct {
	lru *expirable.LRU[string, []domain.FieldItem]
}

// NewMemory returns a memory cache holding up to size entries for ttl.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl < 0 {
		ttl = DefaultTTL
	}
	return &Memory{lru: expirable.NewLRU[string, []domain.FieldItem](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]domain.FieldItem, bool, error) {
	fields, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return cloneFields(fields), true, nil
}

func (m *Memory) Set(_ context.Context, key string, fields []domain.FieldItem) error {
	m.lru.Add(key, cloneFields(fields))
	return nil
}

// Purge drops every entry.
func (m *Memory) Purge() {
	m.lru.Purge()
}

func cloneFields(fields []domain.FieldItem) []domain.FieldItem {
	out := make([]domain.FieldItem, len(fields))
	copy(out, fields)
	return out
}
