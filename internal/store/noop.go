package store

import "optymap/internal/tile"

// NoopStore disables the disk tier: every lookup misses and writes are
// dropped. Tiles then live only in the RAM tier.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

var _ TileStore = (*NoopStore)(nil)

func (s *NoopStore) Get(a tile.Address) ([]byte, bool, error) { return nil, false, nil }
func (s *NoopStore) Set(a tile.Address, data []byte) error    { return nil }
func (s *NoopStore) Exists(a tile.Address) (bool, error)      { return false, nil }
