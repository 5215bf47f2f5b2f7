// Package tile defines the address of a single slippy-map tile. An Address
// is the canonical key shared by every cache tier.
package tile

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxZoom is the deepest zoom level an Address may carry. 2^30 columns is
// already far beyond what any tile source serves.
const MaxZoom = 30

// Address identifies one tile in the XYZ tiling scheme. It is used by value
// as a map key; equality is structural.
type Address struct {
	Zoom int
	Col  int
	Row  int
}

// Valid reports whether the address names an existing tile:
// 0 <= Col,Row < 2^Zoom.
func (a Address) Valid() bool {
	if a.Zoom < 0 || a.Zoom > MaxZoom {
		return false
	}
	n := 1 << a.Zoom
	return a.Col >= 0 && a.Col < n && a.Row >= 0 && a.Row < n
}

func (a Address) String() string {
	return fmt.Sprintf("%d/%d/%d", a.Zoom, a.Col, a.Row)
}

// URL expands a {z}/{x}/{y} template into the tile's fetch URL.
func (a Address) URL(template string) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(a.Zoom),
		"{x}", strconv.Itoa(a.Col),
		"{y}", strconv.Itoa(a.Row),
	)
	return r.Replace(template)
}
