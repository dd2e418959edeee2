package models

// Station is a metro stop from the GTFS feed.
type Station struct {
	ID       string  `json:"id"`
	Code     string  `json:"code,omitempty"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Distance float64 `json:"distance,omitempty"`
}

// ShapeEntry is an encoded polyline.
type ShapeEntry struct {
	Length int    `json:"length"`
	Levels string `json:"levels"`
	Points string `json:"points"`
}
