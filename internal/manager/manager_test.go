package manager

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"optymap/internal/fetch"
	"optymap/internal/projection"
	"optymap/internal/store"
	"optymap/internal/tile"
	"optymap/pkg/logger"
)

func tilePNG(t testing.TB) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// newTestManager wires a manager to the given tile source and a fresh
// filesystem disk tier.
func newTestManager(t *testing.T, srv *httptest.Server, cooldown time.Duration) (*Manager, store.TileStore) {
	t.Helper()

	st, err := store.NewFilesystemStore(t.TempDir(), "png")
	if err != nil {
		t.Fatal(err)
	}

	m := New(Config{
		Fetch: fetch.Config{
			Workers:     2,
			URLTemplate: srv.URL + "/{z}/{x}/{y}.png",
			Timeout:     2 * time.Second,
		},
		Cooldown: cooldown,
	}, st, logger.NewNoOp())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.Shutdown(ctx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})

	return m, st
}

func waitForState(t *testing.T, m *Manager, a tile.Address, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if m.State(a) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("tile %v never reached state %v, stuck at %v", a, want, m.State(a))
}

func TestRequestFetchesAndCaches(t *testing.T) {
	data := tilePNG(t)
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(data)
	}))
	defer srv.Close()

	m, st := newTestManager(t, srv, time.Second)
	a := tile.Address{Zoom: 3, Col: 2, Row: 1}

	got, state := m.Request(a)
	if got != nil || state != StateQueued {
		t.Fatalf("first request = (%v, %v), want (nil, queued)", got, state)
	}

	waitForState(t, m, a, StateCached)

	got, state = m.Request(a)
	if state != StateCached || got == nil {
		t.Fatalf("request after fetch = (%v, %v)", got, state)
	}
	if got.Img == nil {
		t.Error("cached tile has no decoded image")
	}
	if !bytes.Equal(got.Raw, data) {
		t.Error("cached raw bytes differ from the source response")
	}

	// The fetch landed on disk too.
	if ok, _ := st.Exists(a); !ok {
		t.Error("tile missing from the disk tier")
	}

	if n := hits.Load(); n != 1 {
		t.Errorf("upstream was hit %d times, want 1", n)
	}

	// RAM hits do not touch the network again.
	m.Request(a)
	if n := hits.Load(); n != 1 {
		t.Errorf("upstream was hit %d times after RAM hit, want 1", n)
	}
}

func TestConcurrentRequestsFetchOnce(t *testing.T) {
	data := tilePNG(t)
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(20 * time.Millisecond) // keep the fetch in flight while callers pile up
		w.Write(data)
	}))
	defer srv.Close()

	m, _ := newTestManager(t, srv, time.Second)
	a := tile.Address{Zoom: 5, Col: 10, Row: 20}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Request(a)
		}()
	}
	wg.Wait()

	waitForState(t, m, a, StateCached)

	if n := hits.Load(); n != 1 {
		t.Errorf("upstream was hit %d times for one address, want 1", n)
	}
}

func TestDiskHitSkipsNetwork(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m, st := newTestManager(t, srv, time.Second)
	a := tile.Address{Zoom: 4, Col: 7, Row: 3}

	// Warm the disk tier out of band.
	if err := st.Set(a, tilePNG(t)); err != nil {
		t.Fatal(err)
	}

	m.Request(a)
	waitForState(t, m, a, StateCached)

	if n := hits.Load(); n != 0 {
		t.Errorf("upstream was hit %d times despite a warm disk tier", n)
	}
}

func TestFailureCooldownAndRetry(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cooldown := 100 * time.Millisecond
	m, _ := newTestManager(t, srv, cooldown)
	a := tile.Address{Zoom: 2, Col: 1, Row: 1}

	m.Request(a)
	waitForState(t, m, a, StateFailed)
	if n := hits.Load(); n != 1 {
		t.Fatalf("upstream was hit %d times, want 1", n)
	}

	// Inside the cooldown window the failure is sticky.
	got, state := m.Request(a)
	if got != nil || state != StateFailed {
		t.Errorf("request during cooldown = (%v, %v), want (nil, failed)", got, state)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("request during cooldown hit upstream, count %d", n)
	}

	// After the cooldown the address is retried.
	time.Sleep(cooldown + 20*time.Millisecond)
	_, state = m.Request(a)
	if state != StateQueued {
		t.Errorf("request after cooldown = %v, want queued", state)
	}
	waitForState(t, m, a, StateFailed)
	if n := hits.Load(); n != 2 {
		t.Errorf("upstream was hit %d times after retry, want 2", n)
	}
}

func TestFailedTileDoesNotBlockOthers(t *testing.T) {
	data := tilePNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/6/0/0.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	m, _ := newTestManager(t, srv, time.Second)
	bad := tile.Address{Zoom: 6, Col: 0, Row: 0}
	good := tile.Address{Zoom: 6, Col: 1, Row: 1}

	m.Request(bad)
	m.Request(good)

	waitForState(t, m, good, StateCached)
	waitForState(t, m, bad, StateFailed)
}

func TestUndecodableResponseIsNotPersisted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>rate limited</html>"))
	}))
	defer srv.Close()

	m, st := newTestManager(t, srv, time.Second)
	a := tile.Address{Zoom: 8, Col: 100, Row: 100}

	m.Request(a)
	waitForState(t, m, a, StateFailed)

	if ok, _ := st.Exists(a); ok {
		t.Error("undecodable bytes were written to the disk tier")
	}
}

func TestPreloadWarmsAddresses(t *testing.T) {
	data := tilePNG(t)
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(data)
	}))
	defer srv.Close()

	m, _ := newTestManager(t, srv, time.Second)

	var addrs []tile.Address
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			addrs = append(addrs, tile.Address{Zoom: 4, Col: col, Row: row})
		}
	}

	m.Preload(addrs)
	for _, a := range addrs {
		waitForState(t, m, a, StateCached)
	}

	if n := hits.Load(); n != int64(len(addrs)) {
		t.Errorf("upstream was hit %d times for %d addresses", n, len(addrs))
	}
}

func TestRequestRejectsInvalidAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should never be contacted for an invalid address")
	}))
	defer srv.Close()

	m, _ := newTestManager(t, srv, time.Second)

	got, state := m.Request(tile.Address{Zoom: 3, Col: 8, Row: 0})
	if got != nil || state != StateUnrequested {
		t.Errorf("invalid request = (%v, %v), want (nil, unrequested)", got, state)
	}
}

func TestCancelStaleAllowsRequeue(t *testing.T) {
	data := tilePNG(t)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write(data)
	}))
	defer srv.Close()

	m, _ := newTestManager(t, srv, time.Second)

	// Occupy both workers so further addresses stay queued.
	busy1 := tile.Address{Zoom: 6, Col: 0, Row: 0}
	busy2 := tile.Address{Zoom: 6, Col: 0, Row: 1}
	m.Request(busy1)
	m.Request(busy2)
	waitForState(t, m, busy1, StateFetching)
	waitForState(t, m, busy2, StateFetching)

	stale := tile.Address{Zoom: 6, Col: 1, Row: 2}
	if _, state := m.Request(stale); state != StateQueued {
		t.Fatalf("request = %v, want queued", state)
	}

	m.CancelStale(func(a tile.Address) bool { return a != stale })

	if state := m.State(stale); state != StateUnrequested {
		t.Errorf("state after cancel = %v, want unrequested", state)
	}

	// A later request must queue the address again, not report a phantom
	// queue entry.
	if _, state := m.Request(stale); state != StateQueued {
		t.Errorf("re-request after cancel = %v, want queued", state)
	}

	close(release)
	waitForState(t, m, stale, StateCached)
}

func TestVisibleTilesUsesConfiguredMargin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	m, _ := newTestManager(t, srv, time.Second)

	v := projection.Viewport{
		Center: projection.World{X: 0.5, Y: 0.5},
		Width:  512,
		Height: 512,
		Zoom:   6,
	}

	bare := projection.VisibleTiles(v)
	withDefault := m.VisibleTiles(v)

	// The default margin is 2, so the enumeration must grow beyond the
	// bare viewport.
	if len(withDefault) <= len(bare) {
		t.Errorf("default margin enumerated %d tiles, bare viewport %d", len(withDefault), len(bare))
	}

	// The manager's enumeration is the preload one: a margin on the
	// viewport does not leak through, explicit margins go straight to
	// projection.VisibleTiles.
	v.Margin = 7
	if got := m.VisibleTiles(v); len(got) != len(withDefault) {
		t.Errorf("viewport margin leaked through: %d tiles vs %d", len(got), len(withDefault))
	}
	v.Margin = 0
	if got := projection.VisibleTiles(v); len(got) != len(bare) {
		t.Errorf("explicit zero margin enumerated %d tiles, want %d", len(got), len(bare))
	}
}

func TestStateStrings(t *testing.T) {
	if StateCached.String() != "cached" || StateUnrequested.String() != "unrequested" {
		t.Error("state strings are off")
	}
}
