package protocol

import "encoding/json"

const FormatGeoJSON = "geojson"

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt,omitempty"`
}

// Coordinates returns the point in GeoJSON axis order: lon, lat, alt.
func (p GeoPoint) Coordinates() []float64 {
	return []float64{p.Lon, p.Lat, p.Alt}
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties,omitempty"`
}

// PointFeature wraps p in a GeoJSON Point feature.
func PointFeature(p GeoPoint) Feature {
	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: p.Coordinates(),
		},
	}
}

// FeaturePlot is the map.feature.plot payload.
type FeaturePlot struct {
	FeatureID string  `json:"featureId"`
	Name      string  `json:"name"`
	Format    string  `json:"format"`
	Feature   Feature `json:"feature"`
	Zoom      bool    `json:"zoom"`
}

type CenterLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ViewCenter is the map.view.center.location payload.
type ViewCenter struct {
	Location CenterLocation `json:"location"`
	Zoom     float64        `json:"zoom"`
}

// Click is the map.view.clicked payload.
type Click struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Completion is the map.message.complete payload. Details keeps every key the
// surface sent; only featureId is interpreted.
type Completion struct {
	Status  string                     `json:"status"`
	Details map[string]json.RawMessage `json:"details,omitempty"`
}
