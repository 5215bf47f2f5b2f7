package store

import (
	"database/sql"
	"embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"optymap/internal/tile"
	"optymap/pkg/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore keeps tiles in a single SQLite database instead of one file
// per tile. Useful when the tile count outgrows what the filesystem handles
// comfortably.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSQLiteStore(path string, l logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{
		db:     db,
		logger: l,
	}

	err = s.runMigrations()
	if err != nil {
		return nil, err
	}

	l.Info("sqlite tile store initialized", "path", path)

	return s, nil
}

func (s *SQLiteStore) runMigrations() error {
	goose.SetBaseFS(migrations)

	err := goose.SetDialect("sqlite3")
	if err != nil {
		return err
	}

	err = goose.Up(s.db, "migrations")
	if err != nil {
		return err
	}

	return nil
}

var _ TileStore = (*SQLiteStore)(nil)

func (s *SQLiteStore) Get(a tile.Address) ([]byte, bool, error) {
	s.logger.Debug("sqlite store get", "zoom", a.Zoom, "col", a.Col, "row", a.Row)

	query := `SELECT tile_data
	FROM tiles
	WHERE z = ? AND x = ? AND y = ?`

	var tileData []byte
	err := s.db.QueryRow(query, a.Zoom, a.Col, a.Row).Scan(&tileData)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		s.logger.Error("sqlite store get failed", "zoom", a.Zoom, "col", a.Col, "row", a.Row, "error", err)
		return nil, false, err
	}

	return tileData, true, nil
}

func (s *SQLiteStore) Set(a tile.Address, data []byte) error {
	s.logger.Debug("sqlite store set", "zoom", a.Zoom, "col", a.Col, "row", a.Row)

	query := `INSERT INTO tiles (z, x, y, tile_data)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(z, x, y) DO UPDATE SET tile_data = excluded.tile_data`

	_, err := s.db.Exec(query, a.Zoom, a.Col, a.Row, data)
	if err != nil {
		s.logger.Error("sqlite store set failed", "zoom", a.Zoom, "col", a.Col, "row", a.Row, "error", err)
		return err
	}

	return nil
}

func (s *SQLiteStore) Exists(a tile.Address) (bool, error) {
	query := `SELECT 1 FROM tiles WHERE z = ? AND x = ? AND y = ?`

	var one int
	err := s.db.QueryRow(query, a.Zoom, a.Col, a.Row).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
