// Package projection maps geographic coordinates onto the normalized
// Web Mercator plane and between world and tile/pixel space.
package projection

import (
	"math"

	"optymap/internal/tile"
)

// TileSize is the edge length of a tile in pixels.
const TileSize = 256

// maxSinLat clamps the Mercator transform short of the poles so the
// projection stays finite. Corresponds to latitudes of about +-85.05 degrees.
const maxSinLat = 0.9999

// World is a point on the normalized world plane. (0,0) is the north-west
// corner. X is always in [0,1); Y is in [0,1) for latitudes inside the
// Mercator clamp and may run slightly past that range near the poles, where
// WorldToTile clamps the row back into the world.
type World struct {
	X float64
	Y float64
}

// Project maps a geographic coordinate to world space. Latitude is clamped
// to the valid Mercator range and longitude is wrapped, so the result is
// always finite.
func Project(lat, lon float64) World {
	sinLat := math.Sin(lat * math.Pi / 180)
	sinLat = math.Min(math.Max(sinLat, -maxSinLat), maxSinLat)

	// Wrap longitude into [-180, 180) so X lands in [0, 1).
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	lon -= 180

	return World{
		X: 0.5 + lon/360,
		Y: 0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi),
	}
}

// Unproject maps a world coordinate back to latitude/longitude.
func Unproject(w World) (lat, lon float64) {
	lon = (w.X - 0.5) * 360
	lat = math.Atan(math.Sinh((0.5-w.Y)*2*math.Pi)) * 180 / math.Pi
	return lat, lon
}

// WorldToTile locates the tile containing w at the given zoom and the pixel
// offset of w inside that tile. The column wraps around the antimeridian and
// the row is clamped to the valid range, so the returned address is always
// valid for zoom in [0, MaxZoom].
func WorldToTile(w World, zoom int) (a tile.Address, offX, offY float64) {
	n := float64(int(1) << zoom)

	fx := w.X * n
	fy := w.Y * n

	col := int(math.Floor(fx))
	row := int(math.Floor(fy))

	offX = (fx - float64(col)) * TileSize
	offY = (fy - float64(row)) * TileSize

	col = wrap(col, 1<<zoom)
	if row < 0 {
		row = 0
	}
	if row >= 1<<zoom {
		row = 1<<zoom - 1
	}

	return tile.Address{Zoom: zoom, Col: col, Row: row}, offX, offY
}

// TileToWorld returns the world coordinate of the tile's north-west corner.
func TileToWorld(a tile.Address) World {
	n := float64(int(1) << a.Zoom)
	return World{
		X: float64(a.Col) / n,
		Y: float64(a.Row) / n,
	}
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
