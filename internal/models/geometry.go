package models

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// GeoJSONPoint represents a GeoJSON Point for API input/output. Fraud
// metadata carries incident location and per-photo GPS fixes in this form.
type GeoJSONPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// LatLng returns the point as (latitude, longitude) degrees. GeoJSON
// coordinate order is [longitude, latitude].
func (g *GeoJSONPoint) LatLng() (float64, float64, error) {
	pt, err := g.Point()
	if err != nil {
		return 0, 0, err
	}
	return pt.Y(), pt.X(), nil
}

// Point converts the GeoJSON representation to a go-geom Point.
func (g *GeoJSONPoint) Point() (*geom.Point, error) {
	if g == nil || g.Type == "" {
		return nil, fmt.Errorf("empty GeoJSON point")
	}

	geoJSONBytes, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}

	var geometry geom.T
	if err := geojson.Unmarshal(geoJSONBytes, &geometry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal GeoJSON: %w", err)
	}

	point, ok := geometry.(*geom.Point)
	if !ok {
		return nil, fmt.Errorf("geometry is not a Point")
	}

	return point, nil
}

// NewGeoJSONPoint builds a point from (latitude, longitude) degrees.
func NewGeoJSONPoint(lat, lng float64) *GeoJSONPoint {
	return &GeoJSONPoint{
		Type:        "Point",
		Coordinates: []float64{lng, lat},
	}
}
