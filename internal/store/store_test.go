package store

import (
	"os"
	"path/filepath"
	"testing"

	"optymap/internal/tile"
)

func TestFilesystemStoreRoundTrip(t *testing.T) {
	s, err := NewFilesystemStore(t.TempDir(), "png")
	if err != nil {
		t.Fatal(err)
	}

	a := tile.Address{Zoom: 3, Col: 2, Row: 1}
	data := []byte("not really a png")

	if _, ok, _ := s.Get(a); ok {
		t.Fatal("empty store should miss")
	}
	if ok, _ := s.Exists(a); ok {
		t.Fatal("empty store should not report existence")
	}

	if err := s.Set(a, data); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Get(a)
	if err != nil || !ok {
		t.Fatalf("get after set: ok=%v err=%v", ok, err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
	if ok, _ := s.Exists(a); !ok {
		t.Error("exists after set should be true")
	}
}

func TestFilesystemStoreLayout(t *testing.T) {
	root := t.TempDir()
	s, err := NewFilesystemStore(root, "png")
	if err != nil {
		t.Fatal(err)
	}

	a := tile.Address{Zoom: 3, Col: 2, Row: 1}
	if err := s.Set(a, []byte("x")); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(root, "3", "2", "1.png")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("tile not at %s: %v", want, err)
	}
}

func TestFilesystemStoreLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	s, err := NewFilesystemStore(root, "png")
	if err != nil {
		t.Fatal(err)
	}

	a := tile.Address{Zoom: 5, Col: 17, Row: 11}
	if err := s.Set(a, []byte("payload")); err != nil {
		t.Fatal(err)
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".tmp" {
			t.Errorf("stray temp file: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestFilesystemStoreOverwrite(t *testing.T) {
	s, err := NewFilesystemStore(t.TempDir(), "png")
	if err != nil {
		t.Fatal(err)
	}

	a := tile.Address{Zoom: 1, Col: 0, Row: 0}
	if err := s.Set(a, []byte("old")); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(a, []byte("new")); err != nil {
		t.Fatal(err)
	}

	got, _, _ := s.Get(a)
	if string(got) != "new" {
		t.Errorf("got %q after overwrite, want %q", got, "new")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	a := tile.Address{Zoom: 2, Col: 1, Row: 3}

	if _, ok, _ := s.Get(a); ok {
		t.Fatal("empty store should miss")
	}
	if err := s.Set(a, []byte("blob")); err != nil {
		t.Fatal(err)
	}
	got, ok, _ := s.Get(a)
	if !ok || string(got) != "blob" {
		t.Errorf("get = %q, %v", got, ok)
	}
	if ok, _ := s.Exists(a); !ok {
		t.Error("exists after set should be true")
	}
}

func TestNoopStoreAlwaysMisses(t *testing.T) {
	s := NewNoopStore()
	a := tile.Address{Zoom: 0, Col: 0, Row: 0}

	if err := s.Set(a, []byte("dropped")); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(a); ok {
		t.Error("noop store should never hit")
	}
	if ok, _ := s.Exists(a); ok {
		t.Error("noop store should never report existence")
	}
}
