// Package gtfs loads route shapes and stop positions from a GTFS feed
// directory and projects them into world coordinates. It touches the core
// only through the projection functions.
package gtfs

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"optymap/internal/projection"
	"optymap/pkg/logger"
)

// Shape is one route polyline, already projected.
type Shape struct {
	ID     string
	Points []projection.World
}

// Stop is one transit stop, already projected.
type Stop struct {
	ID   string
	Name string
	Pos  projection.World
}

type Geometry struct {
	Shapes []Shape
	Stops  []Stop
}

// Load reads shapes.txt and stops.txt from dir. A missing or unreadable
// file yields an empty slice, not an error: the map works without overlays.
func Load(dir string, l logger.Logger) *Geometry {
	g := &Geometry{}

	shapes, err := LoadShapes(filepath.Join(dir, "shapes.txt"))
	if err != nil {
		l.Warn("no route shapes loaded", "dir", dir, "error", err)
	} else {
		g.Shapes = shapes
	}

	stops, err := LoadStops(filepath.Join(dir, "stops.txt"))
	if err != nil {
		l.Warn("no stops loaded", "dir", dir, "error", err)
	} else {
		g.Stops = stops
	}

	l.Info("gtfs geometry loaded", "shapes", len(g.Shapes), "stops", len(g.Stops))

	return g
}

type shapeRow struct {
	id  string
	seq int
	pos projection.World
}

// LoadShapes parses shapes.txt, ordering points by shape_pt_sequence within
// each shape_id.
func LoadShapes(path string) ([]Shape, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	idIdx, err := column(header, "shape_id")
	if err != nil {
		return nil, err
	}
	seqIdx, err := column(header, "shape_pt_sequence")
	if err != nil {
		return nil, err
	}
	latIdx, err := column(header, "shape_pt_lat")
	if err != nil {
		return nil, err
	}
	lonIdx, err := column(header, "shape_pt_lon")
	if err != nil {
		return nil, err
	}

	var rows []shapeRow
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read shapes.txt: %w", err)
		}

		seq, err := strconv.Atoi(rec[seqIdx])
		if err != nil {
			return nil, fmt.Errorf("bad shape_pt_sequence %q: %w", rec[seqIdx], err)
		}
		lat, lon, err := parseLatLon(rec[latIdx], rec[lonIdx])
		if err != nil {
			return nil, err
		}

		rows = append(rows, shapeRow{
			id:  rec[idIdx],
			seq: seq,
			pos: projection.Project(lat, lon),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].id != rows[j].id {
			return rows[i].id < rows[j].id
		}
		return rows[i].seq < rows[j].seq
	})

	var shapes []Shape
	for _, row := range rows {
		if len(shapes) == 0 || shapes[len(shapes)-1].ID != row.id {
			shapes = append(shapes, Shape{ID: row.id})
		}
		last := &shapes[len(shapes)-1]
		last.Points = append(last.Points, row.pos)
	}

	return shapes, nil
}

// LoadStops parses stops.txt.
func LoadStops(path string) ([]Stop, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	latIdx, err := column(header, "stop_lat")
	if err != nil {
		return nil, err
	}
	lonIdx, err := column(header, "stop_lon")
	if err != nil {
		return nil, err
	}
	idIdx, _ := column(header, "stop_id")
	nameIdx, _ := column(header, "stop_name")

	var stops []Stop
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read stops.txt: %w", err)
		}

		lat, lon, err := parseLatLon(rec[latIdx], rec[lonIdx])
		if err != nil {
			return nil, err
		}

		s := Stop{Pos: projection.Project(lat, lon)}
		if idIdx >= 0 {
			s.ID = rec[idIdx]
		}
		if nameIdx >= 0 {
			s.Name = rec[nameIdx]
		}
		stops = append(stops, s)
	}

	return stops, nil
}

// readHeader reads the first CSV record and strips the UTF-8 BOM some GTFS
// exporters prepend.
func readHeader(r *csv.Reader) ([]string, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header, nil
}

func column(header []string, name string) (int, error) {
	for i, h := range header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("missing column %q", name)
}

func parseLatLon(latStr, lonStr string) (lat, lon float64, err error) {
	lat, err = strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad latitude %q: %w", latStr, err)
	}
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad longitude %q: %w", lonStr, err)
	}
	return lat, lon, nil
}
