//go:build !cgo || !linux

package ocr

import "image"

// Available reports whether OCR support was compiled into this binary.
func Available() bool { return false }

// Scan returns ErrUnavailable on builds without the Tesseract binding.
func Scan(img image.Image, region Region, language string) (*Result, error) {
	return nil, ErrUnavailable
}
