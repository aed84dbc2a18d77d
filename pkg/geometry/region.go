package geometry

import (
	"encoding/json"
	"fmt"
)

// Region kind tags as stored in the annotation file.
const (
	KindBBox    = "bbox"
	KindPolygon = "polygon"
)

// BoundingBox is an axis-aligned box in normalized image coordinates.
// All fields are fractions of the image dimensions in (0, 1].
type BoundingBox struct {
	XCenter float64 `json:"x_center"`
	YCenter float64 `json:"y_center"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// ToAbsolute converts the box to pixel coordinates for a w×h image.
func (b BoundingBox) ToAbsolute(w, h int) RectInt {
	cx := b.XCenter * float64(w)
	cy := b.YCenter * float64(h)
	bw := b.Width * float64(w)
	bh := b.Height * float64(h)

	x1 := int(cx - bw/2)
	y1 := int(cy - bh/2)
	x2 := int(cx + bw/2)
	y2 := int(cy + bh/2)
	return RectInt{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Polygon is an ordered ring of points in normalized image coordinates,
// stored as a flat [x1, y1, x2, y2, ...] list matching the label format.
type Polygon struct {
	Coords []float64 `json:"coords"`
}

// ToAbsolutePoints converts the normalized ring to pixel points.
func (p Polygon) ToAbsolutePoints(w, h int) []PointInt {
	points := make([]PointInt, 0, len(p.Coords)/2)
	for i := 0; i+1 < len(p.Coords); i += 2 {
		points = append(points, PointInt{
			X: int(p.Coords[i] * float64(w)),
			Y: int(p.Coords[i+1] * float64(h)),
		})
	}
	return points
}

// ToAbsolute returns the min/max pixel envelope of the polygon.
func (p Polygon) ToAbsolute(w, h int) RectInt {
	return BoundingBoxInt(p.ToAbsolutePoints(w, h))
}

// Region is the tagged union of the two label shapes. Exactly one of
// Box or Poly is set.
type Region struct {
	Box  *BoundingBox
	Poly *Polygon
}

// BoxRegion wraps a BoundingBox as a Region.
func BoxRegion(b BoundingBox) Region {
	return Region{Box: &b}
}

// PolygonRegion wraps a Polygon as a Region.
func PolygonRegion(p Polygon) Region {
	return Region{Poly: &p}
}

// Kind returns the tag string for the active shape.
func (r Region) Kind() string {
	if r.Poly != nil {
		return KindPolygon
	}
	return KindBBox
}

// ToAbsolute resolves the region to a pixel rectangle: the box itself,
// or the envelope of the polygon points.
func (r Region) ToAbsolute(w, h int) RectInt {
	if r.Poly != nil {
		return r.Poly.ToAbsolute(w, h)
	}
	if r.Box != nil {
		return r.Box.ToAbsolute(w, h)
	}
	return RectInt{}
}

// taggedRegion is the on-disk JSON shape shared by both variants.
type taggedRegion struct {
	Type    string    `json:"type"`
	XCenter float64   `json:"x_center,omitempty"`
	YCenter float64   `json:"y_center,omitempty"`
	Width   float64   `json:"width,omitempty"`
	Height  float64   `json:"height,omitempty"`
	Coords  []float64 `json:"coords,omitempty"`
}

// MarshalJSON encodes the region in its tagged on-disk form.
func (r Region) MarshalJSON() ([]byte, error) {
	if r.Poly != nil {
		return json.Marshal(taggedRegion{Type: KindPolygon, Coords: r.Poly.Coords})
	}
	if r.Box != nil {
		return json.Marshal(taggedRegion{
			Type:    KindBBox,
			XCenter: r.Box.XCenter,
			YCenter: r.Box.YCenter,
			Width:   r.Box.Width,
			Height:  r.Box.Height,
		})
	}
	return nil, fmt.Errorf("geometry: region has no shape")
}

// UnmarshalJSON decodes the tagged on-disk form.
func (r *Region) UnmarshalJSON(data []byte) error {
	var tr taggedRegion
	if err := json.Unmarshal(data, &tr); err != nil {
		return err
	}
	switch tr.Type {
	case KindPolygon:
		r.Box = nil
		r.Poly = &Polygon{Coords: tr.Coords}
	case KindBBox:
		r.Poly = nil
		r.Box = &BoundingBox{
			XCenter: tr.XCenter,
			YCenter: tr.YCenter,
			Width:   tr.Width,
			Height:  tr.Height,
		}
	default:
		return fmt.Errorf("geometry: unknown region type %q", tr.Type)
	}
	return nil
}
