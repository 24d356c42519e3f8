package annotation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Shape is a single labeled region from a LabelMe-style annotation file.
type Shape struct {
	// Label is the free-text label assigned by the annotator
	// (e.g., "tumor_lesion", "lymph_node").
	Label string `json:"label"`

	// ShapeType is the LabelMe geometry kind. Only "polygon" shapes
	// participate in mask and bounding-box computation; an empty value is
	// treated as "polygon" for older files that omit it.
	ShapeType string `json:"shape_type"`

	// Points is the polygon vertex list as [x, y] pairs in pixel
	// coordinates. Fewer than 3 points makes the shape degenerate.
	Points [][2]float64 `json:"points"`
}

// Document is a parsed annotation file for one ultrasound frame.
type Document struct {
	// ImageWidth and ImageHeight are the annotated frame dimensions.
	// Some files omit them; callers supply a fallback from the image itself.
	ImageWidth  int `json:"imageWidth"`
	ImageHeight int `json:"imageHeight"`

	// Shapes is the list of annotated regions.
	Shapes []Shape `json:"shapes"`
}

// LesionKeywords are the label substrings that identify the lesion shapes
// used for ROI extraction when keyword filtering is active.
var LesionKeywords = []string{"lesion", "tumor", "roi", "target"}

// IsPolygon reports whether the shape is a usable polygon: declared (or
// implied) polygon geometry with at least 3 vertices.
func (s *Shape) IsPolygon() bool {
	if s.ShapeType != "" && s.ShapeType != "polygon" {
		return false
	}
	return len(s.Points) >= 3
}

// Parse decodes an annotation document from JSON.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse annotation: %w", err)
	}
	return &doc, nil
}

// LoadFile reads and parses an annotation file from disk.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Polygons returns the document's usable polygon shapes. Non-polygon and
// degenerate shapes are skipped.
func (d *Document) Polygons() []Shape {
	out := make([]Shape, 0, len(d.Shapes))
	for _, s := range d.Shapes {
		if s.IsPolygon() {
			out = append(out, s)
		}
	}
	return out
}

// FilterByKeywords returns the shapes whose label contains any of the given
// keywords (case-insensitive). When no shape matches, all shapes are
// returned so that unlabeled datasets still yield an ROI.
func FilterByKeywords(shapes []Shape, keywords []string) []Shape {
	if len(keywords) == 0 {
		return shapes
	}

	matched := make([]Shape, 0, len(shapes))
	for _, s := range shapes {
		label := strings.ToLower(s.Label)
		for _, kw := range keywords {
			if strings.Contains(label, strings.ToLower(kw)) {
				matched = append(matched, s)
				break
			}
		}
	}

	if len(matched) == 0 {
		return shapes
	}
	return matched
}
