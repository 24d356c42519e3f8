package imaging

import (
	"image"
	"sort"

	"github.com/anthonynsimon/bild/blur"

	"github.com/ironsheep/gastric-review/internal/annotation"
)

// Mask is a binary lesion mask over a fixed-size pixel grid.
//
// Pixels are stored row-major in a flat buffer; index = y*Width + x.
// Foreground pixels belong to the lesion, background pixels to surrounding
// tissue.
type Mask struct {
	Width  int
	Height int
	bits   []bool
}

// NewMask creates an all-background mask of the given dimensions.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		bits:   make([]bool, width*height),
	}
}

// At reports whether the pixel at (x, y) is foreground.
// Out-of-bounds coordinates are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return false
	}
	return m.bits[y*m.Width+x]
}

// Set marks the pixel at (x, y) foreground. Out-of-bounds sets are ignored.
func (m *Mask) Set(x, y int) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.bits[y*m.Width+x] = true
}

// ForegroundCount returns the number of foreground pixels.
func (m *Mask) ForegroundCount() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// MaskSource produces a binary mask from some lesion representation.
//
// The ring generator accepts any source; the two implementations cover the
// dataset's two lesion encodings (pre-rendered raster masks and polygon
// annotations).
type MaskSource interface {
	BuildMask() (*Mask, error)
}

// ForegroundHeuristic decides whether a raster pixel belongs to the lesion.
//
// Pre-rendered mask images in the dataset encode the lesion either in the
// alpha channel or as a green-dominant overlay; the exact calibration is not
// documented, so both thresholds are parameters.
type ForegroundHeuristic struct {
	// AlphaThreshold marks a pixel foreground when alpha exceeds it.
	AlphaThreshold uint8

	// GreenDominance marks a pixel foreground when green exceeds both red
	// and blue by at least this margin.
	GreenDominance uint8
}

// DefaultHeuristic matches the overlay style produced by the dataset
// pipeline (alpha > 20, or green dominant by 30).
func DefaultHeuristic() ForegroundHeuristic {
	return ForegroundHeuristic{AlphaThreshold: 20, GreenDominance: 30}
}

// ForegroundAlpha classifies a pixel by its alpha channel. Used for mask
// images that encode the lesion as a translucent painted region.
func (h ForegroundHeuristic) ForegroundAlpha(a uint8) bool {
	return a > h.AlphaThreshold
}

// ForegroundGreen classifies a pixel by green-channel dominance. Used for
// opaque overlay exports where the lesion is drawn in green.
func (h ForegroundHeuristic) ForegroundGreen(r, g, b uint8) bool {
	return int(g) >= int(r)+int(h.GreenDominance) && int(g) >= int(b)+int(h.GreenDominance)
}

// RasterSource builds a mask from a pre-rendered mask image.
type RasterSource struct {
	// Img is the mask image; its alpha/color encodes the lesion.
	Img image.Image

	// Heuristic is the foreground classification rule.
	Heuristic ForegroundHeuristic

	// SmoothSigma, when > 0, Gaussian-smooths the image before
	// thresholding to suppress single-pixel speckle in hand-edited masks.
	SmoothSigma float64
}

// BuildMask classifies every pixel of the raster image.
//
// When the image carries any transparency, the alpha rule applies: painted
// (alpha above threshold) means lesion. Fully opaque images fall back to
// the green-dominance rule used by the dataset's exported overlays.
//
// Returns ErrNoForeground (wrapped as an input error) when the heuristic
// matches no pixel, which usually means the image is not a mask at all.
func (s *RasterSource) BuildMask() (*Mask, error) {
	img := s.Img
	if s.SmoothSigma > 0 {
		img = blur.Gaussian(img, s.SmoothSigma)
	}

	bounds := img.Bounds()
	mask := NewMask(bounds.Dx(), bounds.Dy())

	hasAlpha := false
	for y := bounds.Min.Y; y < bounds.Max.Y && !hasAlpha; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); uint8(a>>8) < 255 {
				hasAlpha = true
				break
			}
		}
	}

	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			r, g, b, a := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			var fg bool
			if hasAlpha {
				fg = s.Heuristic.ForegroundAlpha(uint8(a >> 8))
			} else {
				fg = s.Heuristic.ForegroundGreen(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			}
			if fg {
				mask.bits[y*mask.Width+x] = true
			}
		}
	}

	if mask.ForegroundCount() == 0 {
		return nil, inputErr("build raster mask", ErrNoForeground)
	}
	return mask, nil
}

// PolygonSource builds a mask by rasterizing annotation polygons with
// scanline fill, the same construction the dataset pipeline uses to turn
// LabelMe shapes into overlay masks.
type PolygonSource struct {
	// Shapes are the annotation shapes; non-polygon and degenerate shapes
	// are skipped.
	Shapes []annotation.Shape

	// Width and Height are the target mask dimensions.
	Width  int
	Height int
}

// BuildMask rasterizes every usable polygon into one combined mask.
//
// Fill rule is even-odd per scanline, sampling at pixel centers. Returns
// ErrNoForeground when no polygon covers any pixel.
func (s *PolygonSource) BuildMask() (*Mask, error) {
	mask := NewMask(s.Width, s.Height)

	for _, shape := range s.Shapes {
		if !shape.IsPolygon() {
			continue
		}
		fillPolygon(mask, shape.Points)
	}

	if mask.ForegroundCount() == 0 {
		return nil, inputErr("build polygon mask", ErrNoForeground)
	}
	return mask, nil
}

// fillPolygon rasterizes one polygon into the mask using even-odd scanline
// fill. Sampling is at pixel centers (y + 0.5) so thin polygons still cover
// the rows they cross.
func fillPolygon(mask *Mask, points [][2]float64) {
	n := len(points)
	if n < 3 {
		return
	}

	minY, maxY := points[0][1], points[0][1]
	for _, p := range points[1:] {
		if p[1] < minY {
			minY = p[1]
		}
		if p[1] > maxY {
			maxY = p[1]
		}
	}

	y0 := int(minY)
	y1 := int(maxY)
	if y0 < 0 {
		y0 = 0
	}
	if y1 >= mask.Height {
		y1 = mask.Height - 1
	}

	xs := make([]float64, 0, 8)
	for y := y0; y <= y1; y++ {
		sy := float64(y) + 0.5
		xs = xs[:0]

		for i := 0; i < n; i++ {
			ax, ay := points[i][0], points[i][1]
			bx, by := points[(i+1)%n][0], points[(i+1)%n][1]
			// Half-open interval keeps shared vertices from double counting.
			if (ay <= sy) == (by <= sy) {
				continue
			}
			t := (sy - ay) / (by - ay)
			xs = append(xs, ax+t*(bx-ax))
		}

		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := int(xs[i] + 0.5)
			x1 := int(xs[i+1] - 0.5)
			if x0 < 0 {
				x0 = 0
			}
			if x1 >= mask.Width {
				x1 = mask.Width - 1
			}
			for x := x0; x <= x1; x++ {
				mask.bits[y*mask.Width+x] = true
			}
		}
	}
}
