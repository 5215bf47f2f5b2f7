package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"optymap/internal/tile"
)

// FilesystemStore keeps one file per tile under root/{zoom}/{col}/{row}.ext.
// The existence of the file is authoritative; there is no side metadata.
type FilesystemStore struct {
	root string
	ext  string
}

var _ TileStore = (*FilesystemStore)(nil)

func NewFilesystemStore(root, ext string) (*FilesystemStore, error) {
	if ext == "" {
		ext = "png"
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache root: %w", err)
	}

	return &FilesystemStore{root: root, ext: ext}, nil
}

func (s *FilesystemStore) path(a tile.Address) string {
	return filepath.Join(s.root,
		strconv.Itoa(a.Zoom),
		strconv.Itoa(a.Col),
		strconv.Itoa(a.Row)+"."+s.ext,
	)
}

func (s *FilesystemStore) Get(a tile.Address) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(a))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return data, true, nil
}

// Set publishes the blob atomically: the bytes land in a temp file first and
// become visible under the final name only via rename, so a concurrent Get
// never observes a partial file.
func (s *FilesystemStore) Set(a tile.Address, data []byte) error {
	path := s.path(a)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create tile directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write tile: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish tile: %w", err)
	}

	return nil
}

func (s *FilesystemStore) Exists(a tile.Address) (bool, error) {
	_, err := os.Stat(s.path(a))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
