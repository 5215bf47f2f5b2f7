// Package store implements the disk tier of the tile cache behind a small
// interface so the backing medium can be swapped without touching the
// fetch pipeline or the manager.
package store

import (
	"time"

	"optymap/internal/tile"
)

// TileStore maps a tile address to a stored image blob. Implementations
// must be safe for concurrent use. Get returns (nil, false, nil) on a miss;
// errors are reserved for I/O failures.
type TileStore interface {
	Get(tile.Address) ([]byte, bool, error)
	Set(tile.Address, []byte) error
	Exists(tile.Address) (bool, error)
}

type Config struct {
	Backend    string
	Dir        string
	Ext        string
	SQLitePath string
	Redis      RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}
