package store

import (
	"sync"

	"optymap/internal/tile"
)

// MemoryStore is an in-process TileStore. It backs the "memory" and test
// configurations where no real disk tier is wanted.
type MemoryStore struct {
	m typedSyncMap
}

type typedSyncMap struct {
	m sync.Map
}

func (c *typedSyncMap) Load(k tile.Address) ([]byte, bool) {
	v, exists := c.m.Load(k)
	if !exists {
		return nil, false
	}
	return v.([]byte), exists
}

func (c *typedSyncMap) Store(k tile.Address, v []byte) {
	c.m.Store(k, v)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ TileStore = (*MemoryStore)(nil)

func (s *MemoryStore) Get(a tile.Address) ([]byte, bool, error) {
	v, exists := s.m.Load(a)
	return v, exists, nil
}

func (s *MemoryStore) Set(a tile.Address, data []byte) error {
	s.m.Store(a, data)
	return nil
}

func (s *MemoryStore) Exists(a tile.Address) (bool, error) {
	_, exists := s.m.Load(a)
	return exists, nil
}
