package dto

// PreloadRequest names a rectangle of tile addresses to warm up.
type PreloadRequest struct {
	Zoom   int `json:"zoom" validate:"gte=0,lte=30"`
	MinCol int `json:"minCol" validate:"gte=0"`
	MaxCol int `json:"maxCol" validate:"gtefield=MinCol"`
	MinRow int `json:"minRow" validate:"gte=0"`
	MaxRow int `json:"maxRow" validate:"gtefield=MinRow"`
}

type PreloadResponse struct {
	Queued int `json:"queued"`
}

// TileStatusResponse is returned while a tile is not yet available.
type TileStatusResponse struct {
	Status string `json:"status"`
}

type WorldPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Shape struct {
	ID     string       `json:"id"`
	Points []WorldPoint `json:"points"`
}

type Stop struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Pos  WorldPoint `json:"pos"`
}

type RoutesResponse struct {
	Shapes []Shape `json:"shapes"`
	Stops  []Stop  `json:"stops"`
}
