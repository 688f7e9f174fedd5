package models

// Location is a geographic position. A driver document carries one as the
// last reported coordinate; writing it always stamps CoordinateUpdatedAt,
// whether the position arrived over HTTP or the location ingest.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}
