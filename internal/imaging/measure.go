package imaging

import (
	"fmt"
	"image"
	"math"
)

// CaliperResult contains a two-point distance measurement in pixel and
// physical units.
type CaliperResult struct {
	DistancePixels float64 `json:"distance_pixels"`
	DistanceMM     float64 `json:"distance_mm"`
	DeltaX         int     `json:"delta_x"`
	DeltaY         int     `json:"delta_y"`
	AngleDegrees   float64 `json:"angle_degrees"`

	// PixelSpacingMM is the calibration used for the conversion.
	PixelSpacingMM float64 `json:"pixel_spacing_mm"`
}

// MeasureCaliper computes the distance between two points on a frame,
// converted to millimeters using the frame's pixel spacing calibration.
//
// Both points must lie inside the frame. Angle is in degrees with 0 pointing
// right and 90 pointing down, matching image coordinates.
func MeasureCaliper(img image.Image, x1, y1, x2, y2 int, pixelSpacingMM float64) (*CaliperResult, error) {
	if pixelSpacingMM <= 0 {
		return nil, inputErr("measure caliper", fmt.Errorf("pixel spacing must be > 0, got %g", pixelSpacingMM))
	}

	bounds := img.Bounds()
	for _, p := range [2]image.Point{{X: x1, Y: y1}, {X: x2, Y: y2}} {
		if !p.In(bounds) {
			return nil, inputErr("measure caliper", fmt.Errorf("point (%d,%d) outside frame bounds %v", p.X, p.Y, bounds))
		}
	}

	deltaX := x2 - x1
	deltaY := y2 - y1
	distance := math.Sqrt(float64(deltaX*deltaX + deltaY*deltaY))
	angle := math.Atan2(float64(deltaY), float64(deltaX)) * 180 / math.Pi

	return &CaliperResult{
		DistancePixels: math.Round(distance*100) / 100,
		DistanceMM:     math.Round(distance*pixelSpacingMM*100) / 100,
		DeltaX:         deltaX,
		DeltaY:         deltaY,
		AngleDegrees:   math.Round(angle*10) / 10,
		PixelSpacingMM: pixelSpacingMM,
	}, nil
}
