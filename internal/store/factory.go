package store

import (
	"fmt"

	"optymap/pkg/logger"
)

// New builds the configured disk-tier backend.
func New(cfg Config, l logger.Logger) (TileStore, error) {
	switch cfg.Backend {
	case "filesystem":
		l.Info("using filesystem tile store", "dir", cfg.Dir, "ext", cfg.Ext)
		return NewFilesystemStore(cfg.Dir, cfg.Ext)
	case "sqlite":
		l.Info("using sqlite tile store", "path", cfg.SQLitePath)
		return NewSQLiteStore(cfg.SQLitePath, l)
	case "redis":
		l.Info("using redis tile store", "addr", cfg.Redis.Addr)
		return NewRedisStore(cfg.Redis)
	case "memory":
		l.Info("using in-memory tile store")
		return NewMemoryStore(), nil
	case "disabled":
		l.Info("disk tier disabled")
		return NewNoopStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: filesystem, sqlite, redis, memory, disabled)", cfg.Backend)
	}
}
