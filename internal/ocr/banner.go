// Package ocr scans ultrasound frames for burned-in device text.
//
// Scanner exports carry a banner with patient name, ID, and probe settings
// baked into the pixels. Before frames leave the research dataset, the
// banner region is scanned so identifying text can be flagged.
//
// The Tesseract binding needs cgo; on builds without it, Scan returns
// ErrUnavailable and the rest of the application works normally.
package ocr

import (
	"errors"
	"regexp"
)

// ErrUnavailable is returned when OCR support was not compiled in.
var ErrUnavailable = errors.New("ocr support not compiled in")

// Region is a rectangular area of the frame in pixel coordinates.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Word is one recognized word with its location and confidence.
type Word struct {
	// Text is the recognized word.
	Text string `json:"text"`

	// Confidence is the OCR confidence (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Region is the word's bounding box in frame coordinates.
	Region Region `json:"region"`
}

// Result contains the outcome of scanning one frame region.
type Result struct {
	// FullText is all recognized text with original spacing.
	FullText string `json:"full_text"`

	// Words are the individual recognized words. May be empty when
	// word-level extraction fails; FullText is still populated.
	Words []Word `json:"words"`

	// Flagged lists recognized words that look like identifiers (long
	// digit runs or date-like strings) and deserve manual review.
	Flagged []string `json:"flagged"`
}

// identifierPattern matches hospital admission numbers and dates as they
// appear in device banners.
var identifierPattern = regexp.MustCompile(`^\d{6,}$|^\d{4}[-/.]\d{1,2}[-/.]\d{1,2}$`)

// flagIdentifiers collects words that match the identifier pattern.
func flagIdentifiers(words []Word) []string {
	var flagged []string
	for _, w := range words {
		if identifierPattern.MatchString(w.Text) {
			flagged = append(flagged, w.Text)
		}
	}
	return flagged
}
