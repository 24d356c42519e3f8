//go:build cgo && linux

package ocr

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Available reports whether OCR support was compiled into this binary.
func Available() bool { return true }

// Scan runs OCR over one region of a frame and returns the recognized
// text with word locations adjusted back to frame coordinates.
//
// The region is cropped, written to a temporary PNG (Tesseract reads
// files), and scanned with the given language ("eng" covers device
// banners). Scanning the full frame is just a region covering its bounds.
func Scan(img image.Image, region Region, language string) (*Result, error) {
	bounds := img.Bounds()
	rect := image.Rect(region.X1, region.Y1, region.X2, region.Y2)
	if !rect.In(bounds) || rect.Empty() {
		return nil, fmt.Errorf("scan region %v outside frame bounds %v", rect, bounds)
	}

	cropped := imaging.Crop(img, rect)

	tmpDir, err := os.MkdirTemp("", "banner-scan")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, "region.png")
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp image: %w", err)
	}
	if err := png.Encode(f, cropped); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to encode temp image: %w", err)
	}
	f.Close()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImage(tmpPath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("ocr failed: %w", err)
	}

	result := &Result{FullText: text}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// Word boxes are best effort; the text alone is still useful.
		return result, nil
	}

	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		result.Words = append(result.Words, Word{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Region: Region{
				X1: box.Box.Min.X + region.X1,
				Y1: box.Box.Min.Y + region.Y1,
				X2: box.Box.Max.X + region.X1,
				Y2: box.Box.Max.Y + region.Y1,
			},
		})
	}
	result.Flagged = flagIdentifiers(result.Words)

	return result, nil
}
