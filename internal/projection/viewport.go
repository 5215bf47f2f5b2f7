package projection

import (
	"math"

	"optymap/internal/tile"
)

// Viewport describes what the rendering side is currently looking at: a
// camera center in world coordinates, a screen size in pixels and a zoom
// level. Margin is the number of extra tile rows/columns enumerated around
// the visible area for preloading.
type Viewport struct {
	Center World
	Width  int
	Height int
	Zoom   int
	Margin int
}

// origin returns the world-pixel coordinate of the viewport's top-left corner.
func (v Viewport) origin() (float64, float64) {
	worldSize := float64(int(1)<<v.Zoom) * TileSize
	return v.Center.X*worldSize - float64(v.Width)/2,
		v.Center.Y*worldSize - float64(v.Height)/2
}

// VisibleTiles enumerates the addresses of every tile intersecting the
// viewport plus its margin. Columns wrap around the antimeridian; rows
// outside the world are skipped. The slice is rebuilt on every call, there
// is no retained iterator state.
func VisibleTiles(v Viewport) []tile.Address {
	n := 1 << v.Zoom
	tlX, tlY := v.origin()

	startCol := int(math.Floor(tlX/TileSize)) - v.Margin
	endCol := int(math.Floor((tlX+float64(v.Width))/TileSize)) + v.Margin
	startRow := int(math.Floor(tlY/TileSize)) - v.Margin
	endRow := int(math.Floor((tlY+float64(v.Height))/TileSize)) + v.Margin

	out := make([]tile.Address, 0, (endCol-startCol+1)*(endRow-startRow+1))
	for col := startCol; col <= endCol; col++ {
		for row := startRow; row <= endRow; row++ {
			if row < 0 || row >= n {
				continue
			}
			out = append(out, tile.Address{Zoom: v.Zoom, Col: wrap(col, n), Row: row})
		}
	}

	return out
}

// ScreenPosition returns the pixel position of the tile's north-west corner
// relative to the viewport's top-left corner. Tiles in the margin land
// outside [0,Width)x[0,Height).
func ScreenPosition(a tile.Address, v Viewport) (x, y float64) {
	tlX, tlY := v.origin()
	return float64(a.Col)*TileSize - tlX, float64(a.Row)*TileSize - tlY
}
