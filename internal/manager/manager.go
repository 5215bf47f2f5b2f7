// Package manager is the facade the map-facing side talks to. It owns the
// RAM tier, the fetch queue and the worker pool, and never blocks a caller
// on network latency: a miss is enqueued and the caller re-polls on a later
// frame.
package manager

import (
	"context"
	"image"
	"sync"
	"time"

	"optymap/internal/fetch"
	"optymap/internal/projection"
	"optymap/internal/store"
	"optymap/internal/tile"
	"optymap/pkg/logger"
	"optymap/pkg/metrics"
)

// State of one tile address in the manager.
type State int

const (
	StateUnrequested State = iota
	StateQueued
	StateFetching
	StateCached
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateFetching:
		return "fetching"
	case StateCached:
		return "cached"
	case StateFailed:
		return "failed"
	default:
		return "unrequested"
	}
}

// Tile is a resolved tile: the decoded image for drawing plus the raw bytes
// as they came from the source, kept for re-serving without re-encoding.
type Tile struct {
	Img image.Image
	Raw []byte
}

type Config struct {
	Fetch fetch.Config
	// Cooldown suppresses re-queueing of a failed address. After it
	// elapses, the next Request queues the address again.
	Cooldown time.Duration
	// PreloadMargin is the default number of off-screen tile rows/columns
	// enumerated by VisibleTiles.
	PreloadMargin int
}

type record struct {
	state    State
	tile     *Tile
	failedAt time.Time
}

// Manager coordinates the cache tiers. All exported methods are safe for
// concurrent use; reads see a tile either fully present or absent.
type Manager struct {
	mu    sync.RWMutex
	tiles map[tile.Address]*record

	queue    *fetch.Queue
	pool     *fetch.Pool
	cooldown time.Duration
	margin   int
	logger   logger.Logger
}

// New builds a manager on top of the given disk tier and starts its worker
// pool. Callers must Shutdown the manager to join the workers.
func New(cfg Config, st store.TileStore, l logger.Logger) *Manager {
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 10 * time.Second
	}
	if cfg.PreloadMargin == 0 {
		cfg.PreloadMargin = 2
	}

	m := &Manager{
		tiles:    make(map[tile.Address]*record),
		queue:    fetch.NewQueue(),
		cooldown: cfg.Cooldown,
		margin:   cfg.PreloadMargin,
		logger:   l,
	}
	m.pool = fetch.NewPool(cfg.Fetch, m.queue, st, m, l)
	m.pool.Start()

	return m
}

// Request returns the tile if the RAM tier has it, otherwise enqueues the
// address (idempotently) and reports the current state. It never blocks.
func (m *Manager) Request(a tile.Address) (*Tile, State) {
	if !a.Valid() {
		m.logger.Warn("rejecting invalid tile address", "tile", a.String())
		return nil, StateUnrequested
	}

	metrics.TileRequests.Inc()

	m.mu.RLock()
	rec, ok := m.tiles[a]
	if ok && rec.state == StateCached {
		t := rec.tile
		m.mu.RUnlock()
		metrics.RAMHits.Inc()
		return t, StateCached
	}
	m.mu.RUnlock()

	st := m.enqueue(a)
	if st == StateCached {
		// Fetch completed between the read above and the enqueue.
		m.mu.RLock()
		t := m.tiles[a].tile
		m.mu.RUnlock()
		metrics.RAMHits.Inc()
		return t, StateCached
	}

	return nil, st
}

// Preload queues a batch of addresses, typically the margin around the
// viewport, under the same dedup and non-blocking contract as Request.
func (m *Manager) Preload(addrs []tile.Address) {
	for _, a := range addrs {
		if !a.Valid() {
			continue
		}
		m.enqueue(a)
	}
}

// VisibleTiles enumerates the addresses intersecting the viewport plus the
// configured preload margin, overriding whatever margin the viewport
// carries. Callers wanting an explicit margin, including zero, use
// projection.VisibleTiles directly.
func (m *Manager) VisibleTiles(v projection.Viewport) []tile.Address {
	v.Margin = m.margin
	return projection.VisibleTiles(v)
}

// State reports the current state of an address without side effects.
func (m *Manager) State(a tile.Address) State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if rec, ok := m.tiles[a]; ok {
		return rec.state
	}
	return StateUnrequested
}

// CancelStale drops queued addresses no longer wanted, e.g. after a fast
// pan. Work already started runs to completion and still warms the cache.
// Cancelled addresses revert to unrequested so a later Request queues them
// again.
func (m *Manager) CancelStale(keep func(tile.Address) bool) {
	removed := m.queue.CancelStale(keep)
	if len(removed) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range removed {
		if rec, ok := m.tiles[a]; ok && rec.state == StateQueued {
			rec.state = StateUnrequested
		}
	}
}

// Shutdown closes the queue and joins the workers, bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.pool.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue pushes the address unless it is cached, already in flight, or
// cooling down after a failure. Returns the resulting state.
func (m *Manager) enqueue(a tile.Address) State {
	m.mu.Lock()
	rec, ok := m.tiles[a]
	if !ok {
		rec = &record{}
		m.tiles[a] = rec
	}

	switch rec.state {
	case StateCached:
		m.mu.Unlock()
		return StateCached
	case StateQueued, StateFetching:
		st := rec.state
		m.mu.Unlock()
		return st
	case StateFailed:
		if time.Since(rec.failedAt) < m.cooldown {
			m.mu.Unlock()
			return StateFailed
		}
	}

	rec.state = StateQueued
	m.mu.Unlock()

	m.queue.Push(a)
	return StateQueued
}

// Begin implements fetch.Sink.
func (m *Manager) Begin(a tile.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.tiles[a]; ok && rec.state == StateQueued {
		rec.state = StateFetching
	}
}

// Publish implements fetch.Sink: the tile enters the RAM tier whole, under
// the write lock, so readers never observe a partial entry.
func (m *Manager) Publish(a tile.Address, img image.Image, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.tiles[a]
	if !ok {
		rec = &record{}
		m.tiles[a] = rec
	}
	rec.state = StateCached
	rec.tile = &Tile{Img: img, Raw: raw}
	rec.failedAt = time.Time{}
}

// Fail implements fetch.Sink. The address stays absent and is suppressed
// from re-queueing until the cooldown elapses.
func (m *Manager) Fail(a tile.Address, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.tiles[a]
	if !ok {
		rec = &record{}
		m.tiles[a] = rec
	}
	rec.state = StateFailed
	rec.failedAt = time.Now()
}
