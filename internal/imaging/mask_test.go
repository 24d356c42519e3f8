package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/gastric-review/internal/annotation"
)

func TestPolygonSource_Square(t *testing.T) {
	src := &PolygonSource{
		Shapes: []annotation.Shape{
			{Label: "tumor_lesion", ShapeType: "polygon",
				Points: [][2]float64{{10, 10}, {20, 10}, {20, 20}, {10, 20}}},
		},
		Width:  30,
		Height: 30,
	}

	mask, err := src.BuildMask()
	if err != nil {
		t.Fatalf("BuildMask failed: %v", err)
	}

	if !mask.At(15, 15) {
		t.Error("center of square should be foreground")
	}
	if mask.At(5, 5) || mask.At(25, 25) {
		t.Error("pixels outside the square should be background")
	}
	// Pixel-center sampling covers exactly the 10x10 block of pixels whose
	// centers fall inside [10,20]x[10,20].
	if n := mask.ForegroundCount(); n != 100 {
		t.Errorf("foreground count: got %d, want 100", n)
	}
}

func TestPolygonSource_SkipsDegenerate(t *testing.T) {
	src := &PolygonSource{
		Shapes: []annotation.Shape{
			{Label: "bad", ShapeType: "polygon", Points: [][2]float64{{1, 1}, {2, 2}}},
		},
		Width:  10,
		Height: 10,
	}

	_, err := src.BuildMask()
	if !errors.Is(err, ErrNoForeground) {
		t.Fatalf("expected ErrNoForeground for degenerate polygons, got %v", err)
	}
}

func TestPolygonSource_ClipsToCanvas(t *testing.T) {
	src := &PolygonSource{
		Shapes: []annotation.Shape{
			{ShapeType: "polygon", Points: [][2]float64{{-5, -5}, {15, -5}, {15, 15}, {-5, 15}}},
		},
		Width:  10,
		Height: 10,
	}

	mask, err := src.BuildMask()
	if err != nil {
		t.Fatalf("BuildMask failed: %v", err)
	}
	if !mask.At(0, 0) || !mask.At(9, 9) {
		t.Error("clipped polygon should cover the whole canvas")
	}
}

func TestRasterSource_AlphaRule(t *testing.T) {
	// Transparent canvas with a painted translucent blob.
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 0, B: 0, A: 128})
		}
	}

	src := &RasterSource{Img: img, Heuristic: DefaultHeuristic()}
	mask, err := src.BuildMask()
	if err != nil {
		t.Fatalf("BuildMask failed: %v", err)
	}

	if !mask.At(10, 10) {
		t.Error("painted pixel should be foreground")
	}
	if mask.At(0, 0) {
		t.Error("transparent pixel should be background")
	}
	if n := mask.ForegroundCount(); n != 100 {
		t.Errorf("foreground count: got %d, want 100", n)
	}
}

func TestRasterSource_GreenDominanceRule(t *testing.T) {
	// Fully opaque frame: gray background, green lesion overlay.
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 80, G: 80, B: 80, A: 255})
		}
	}
	for y := 8; y < 12; y++ {
		for x := 8; x < 12; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 20, G: 200, B: 20, A: 255})
		}
	}

	src := &RasterSource{Img: img, Heuristic: DefaultHeuristic()}
	mask, err := src.BuildMask()
	if err != nil {
		t.Fatalf("BuildMask failed: %v", err)
	}

	if !mask.At(10, 10) {
		t.Error("green pixel should be foreground")
	}
	if mask.At(0, 0) {
		t.Error("gray pixel should be background")
	}
	if n := mask.ForegroundCount(); n != 16 {
		t.Errorf("foreground count: got %d, want 16", n)
	}
}

func TestRasterSource_NoForeground(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10)) // all transparent

	src := &RasterSource{Img: img, Heuristic: DefaultHeuristic()}
	_, err := src.BuildMask()
	if !errors.Is(err, ErrNoForeground) {
		t.Fatalf("expected ErrNoForeground, got %v", err)
	}
}

func TestMask_OutOfBounds(t *testing.T) {
	mask := NewMask(5, 5)
	mask.Set(-1, 0)
	mask.Set(0, 5)
	if mask.ForegroundCount() != 0 {
		t.Error("out-of-bounds Set should be ignored")
	}
	if mask.At(-1, -1) || mask.At(5, 5) {
		t.Error("out-of-bounds At should be background")
	}
}
