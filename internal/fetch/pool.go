package fetch

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sync"
	"time"

	"optymap/internal/store"
	"optymap/internal/tile"
	"optymap/pkg/logger"
	"optymap/pkg/metrics"
)

// Sink receives the outcome of each fetch. Implemented by the manager,
// which owns the RAM tier.
type Sink interface {
	// Begin marks the address as being worked on.
	Begin(a tile.Address)
	// Publish delivers a decoded tile and its raw bytes.
	Publish(a tile.Address, img image.Image, raw []byte)
	// Fail records a failed attempt. The address becomes eligible for
	// retry after the manager's cooldown.
	Fail(a tile.Address, err error)
}

type Config struct {
	Workers     int
	URLTemplate string
	UserAgent   string
	Timeout     time.Duration
}

// Pool runs a fixed number of workers that pull addresses from the queue
// and resolve them disk-tier first, then over the network. All workers
// share one keep-alive HTTP client.
type Pool struct {
	cfg    Config
	queue  *Queue
	store  store.TileStore
	sink   Sink
	client *http.Client
	logger logger.Logger
	wg     sync.WaitGroup
}

func NewPool(cfg Config, q *Queue, s store.TileStore, sink Sink, l logger.Logger) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Pool{
		cfg:   cfg,
		queue: q,
		store: s,
		sink:  sink,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: cfg.Workers,
			},
		},
		logger: l,
	}
}

// Start launches the workers. They run until the queue is closed.
func (p *Pool) Start() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.logger.Info("fetch pool started", "workers", p.cfg.Workers)
}

// Stop closes the queue and joins the workers. In-flight fetches run to
// completion and still populate the tiers.
func (p *Pool) Stop() {
	p.queue.Close()
	p.wg.Wait()
	p.client.CloseIdleConnections()
	p.logger.Info("fetch pool stopped")
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		a, ok := p.queue.Pop()
		if !ok {
			return
		}

		p.sink.Begin(a)
		p.resolve(a)
		p.queue.Release(a)
	}
}

// resolve tries the disk tier, then the network. Failures are reported to
// the sink and never escape the worker.
func (p *Pool) resolve(a tile.Address) {
	data, hit, err := p.store.Get(a)
	if err != nil {
		p.logger.Error("disk tier read failed", "tile", a.String(), "error", err)
	}
	if hit {
		img, err := decode(data)
		if err == nil {
			metrics.DiskHits.Inc()
			p.sink.Publish(a, img, data)
			return
		}
		// Corrupt entry on disk. Refetch and overwrite it.
		p.logger.Warn("disk tile undecodable, refetching", "tile", a.String(), "error", err)
	}

	data, err = p.download(a)
	if err != nil {
		metrics.FetchFailures.WithLabelValues("network").Inc()
		p.logger.Warn("tile fetch failed", "tile", a.String(), "error", err)
		p.sink.Fail(a, err)
		return
	}

	img, err := decode(data)
	if err != nil {
		// Never publish undecodable bytes to the disk tier.
		metrics.FetchFailures.WithLabelValues("decode").Inc()
		p.logger.Warn("tile decode failed", "tile", a.String(), "error", err)
		p.sink.Fail(a, err)
		return
	}

	if err := p.store.Set(a, data); err != nil {
		// The tile still reaches the RAM tier; only persistence is lost.
		metrics.FetchFailures.WithLabelValues("disk").Inc()
		p.logger.Error("disk tier write failed", "tile", a.String(), "error", err)
	}

	p.sink.Publish(a, img, data)
}

func (p *Pool) download(a tile.Address) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, a.URL(p.cfg.URLTemplate), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	metrics.UpstreamRequests.Inc()
	start := time.Now()

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tile source returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile body: %w", err)
	}

	metrics.UpstreamLatency.Observe(time.Since(start).Seconds())

	return data, nil
}

func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode tile image: %w", err)
	}
	return img, nil
}
