package annotation

import "math"

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Width returns the horizontal extent of the box in pixels.
func (b Bounds) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent of the box in pixels.
func (b Bounds) Height() int { return b.Y2 - b.Y1 }

// Expand grows the box by margin pixels on every side, clamped to the
// [0,0,width,height] frame.
func (b Bounds) Expand(margin, width, height int) Bounds {
	out := Bounds{
		X1: b.X1 - margin,
		Y1: b.Y1 - margin,
		X2: b.X2 + margin,
		Y2: b.Y2 + margin,
	}
	if out.X1 < 0 {
		out.X1 = 0
	}
	if out.Y1 < 0 {
		out.Y1 = 0
	}
	if out.X2 > width {
		out.X2 = width
	}
	if out.Y2 > height {
		out.Y2 = height
	}
	return out
}

// BoundingBox computes the axis-aligned bounding box spanning every vertex
// of the given shapes. Vertex coordinates are floored/ceiled outward so the
// box always covers the exact polygon extent.
//
// Returns nil when the shapes contain no points at all.
func BoundingBox(shapes []Shape) *Bounds {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	found := false

	for _, s := range shapes {
		for _, p := range s.Points {
			found = true
			if p[0] < minX {
				minX = p[0]
			}
			if p[0] > maxX {
				maxX = p[0]
			}
			if p[1] < minY {
				minY = p[1]
			}
			if p[1] > maxY {
				maxY = p[1]
			}
		}
	}

	if !found {
		return nil
	}

	return &Bounds{
		X1: int(math.Floor(minX)),
		Y1: int(math.Floor(minY)),
		X2: int(math.Ceil(maxX)),
		Y2: int(math.Ceil(maxY)),
	}
}

// LesionBounds computes the bounding box of the lesion region: polygon
// shapes filtered by LesionKeywords, falling back to all polygons when no
// label matches. Returns nil when the document has no usable points.
func LesionBounds(doc *Document) *Bounds {
	return BoundingBox(FilterByKeywords(doc.Polygons(), LesionKeywords))
}
