package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/anthonynsimon/bild/blend"
)

// ScaleGridResult contains a frame with a calibration grid blended over it.
type ScaleGridResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`

	// SpacingMM is the physical grid spacing in millimeters.
	SpacingMM float64 `json:"spacing_mm"`

	// SpacingPixels is the derived pixel spacing of the grid lines.
	SpacingPixels int `json:"spacing_pixels"`
}

// ScaleGrid blends a millimeter calibration grid over an ultrasound frame so
// reviewers can sanity-check measurements against the device scale.
//
// spacingMM is the physical distance between grid lines; pixelSpacingMM is
// the frame's mm-per-pixel calibration. Labels along the top-left edges give
// each line's offset in millimeters.
func ScaleGrid(img image.Image, spacingMM, pixelSpacingMM float64, gridColor color.NRGBA) (*ScaleGridResult, error) {
	if spacingMM <= 0 || pixelSpacingMM <= 0 {
		return nil, inputErr("scale grid", fmt.Errorf("spacing must be positive, got %gmm at %gmm/px", spacingMM, pixelSpacingMM))
	}

	spacingPx := int(spacingMM/pixelSpacingMM + 0.5)
	if spacingPx < 2 {
		return nil, inputErr("scale grid", fmt.Errorf("grid spacing %gmm is below 2 pixels at %gmm/px", spacingMM, pixelSpacingMM))
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Grid lines live on their own transparent layer so the blend keeps
	// the frame visible through them.
	layer := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := spacingPx; x < width; x += spacingPx {
		for y := 0; y < height; y++ {
			layer.SetRGBA(x, y, color.RGBA(gridColor))
		}
	}
	for y := spacingPx; y < height; y += spacingPx {
		for x := 0; x < width; x++ {
			layer.SetRGBA(x, y, color.RGBA(gridColor))
		}
	}

	result := blend.Normal(img, layer)

	labelColor := color.RGBA{255, 255, 255, 255}
	bgColor := color.RGBA{0, 0, 0, 180}
	for i, x := 1, spacingPx; x < width; i, x = i+1, x+spacingPx {
		drawLabel(result, x+2, 2, fmt.Sprintf("%d", int(float64(i)*spacingMM)), labelColor, bgColor)
	}
	for i, y := 1, spacingPx; y < height; i, y = i+1, y+spacingPx {
		drawLabel(result, 2, y+2, fmt.Sprintf("%d", int(float64(i)*spacingMM)), labelColor, bgColor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, result); err != nil {
		return nil, computeErr("encode scale grid", err)
	}

	return &ScaleGridResult{
		Width:         width,
		Height:        height,
		ImageBase64:   base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:      "image/png",
		SpacingMM:     spacingMM,
		SpacingPixels: spacingPx,
	}, nil
}

// drawLabel draws a small numeric label using a built-in 3x5 pixel font.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			px, py := x+dx, y+dy
			if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
				img.Set(px, py, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
						img.Set(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
