package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// RingOptions controls the rendered appearance of the peritumoral ring.
type RingOptions struct {
	// Radius is the ring width in pixels. 0 yields an empty (fully
	// transparent) overlay.
	Radius int

	// Color is the ring paint color as a hex string ("#RRGGBB").
	Color string

	// Alpha is the base opacity (0-255) of the innermost ring layer.
	Alpha uint8

	// FadeStrength in [0,1] scales the outer-edge falloff: the layer at
	// distance d is painted with alpha * (1 - (d-1)/radius * FadeStrength).
	// 0 paints a uniform ring.
	FadeStrength float64
}

// RingResult contains a rendered peritumoral ring overlay.
//
// The overlay has the same dimensions as the source mask. Ring pixels carry
// the configured color; every other pixel, including the lesion itself, is
// fully transparent.
type RingResult struct {
	// Width of the overlay in pixels (same as the mask).
	Width int `json:"width"`

	// Height of the overlay in pixels (same as the mask).
	Height int `json:"height"`

	// RingPixels is the number of painted pixels.
	RingPixels int `json:"ring_pixels"`

	// Radius is the ring radius the overlay was rendered with.
	Radius int `json:"radius"`

	// ImageBase64 is the overlay encoded as base64 PNG (RGBA).
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for ring overlays.
	MimeType string `json:"mime_type"`
}

// DataURI returns the overlay as a data URI suitable for direct display.
func (r *RingResult) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", r.MimeType, r.ImageBase64)
}

// GenerateRing builds a peritumoral ring overlay from any mask source.
//
// The mask is built once, the distance transform runs once, and ring pixels
// (background pixels with distance in (0, radius]) are painted with the
// configured color. Foreground pixels are never painted, so the ring never
// overlaps the lesion. Identical inputs produce pixel-identical output.
//
// Returns an input error when the source yields no foreground pixels or the
// color cannot be parsed, and a compute error when PNG encoding fails.
func GenerateRing(src MaskSource, opts RingOptions) (*RingResult, error) {
	mask, err := src.BuildMask()
	if err != nil {
		return nil, err
	}
	return RingFromMask(mask, opts)
}

// RingFromMask renders the ring overlay for an already-built mask.
func RingFromMask(mask *Mask, opts RingOptions) (*RingResult, error) {
	field, err := DistanceTransform(mask, opts.Radius)
	if err != nil {
		return nil, err
	}

	ringColor, err := colorful.Hex(opts.Color)
	if err != nil {
		return nil, inputErr("parse ring color", err)
	}
	cr, cg, cb := ringColor.RGB255()

	overlay := image.NewNRGBA(image.Rect(0, 0, mask.Width, mask.Height))
	painted := 0
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !field.RingPixel(x, y) {
				continue
			}
			painted++
			overlay.SetNRGBA(x, y, color.NRGBA{
				R: cr,
				G: cg,
				B: cb,
				A: fadeAlpha(opts.Alpha, int(field.At(x, y)), opts.Radius, opts.FadeStrength),
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, overlay); err != nil {
		return nil, computeErr("encode ring overlay", err)
	}

	return &RingResult{
		Width:       mask.Width,
		Height:      mask.Height,
		RingPixels:  painted,
		Radius:      opts.Radius,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// fadeAlpha scales the base alpha by the distance-dependent falloff
// 1 - (d-1)/radius * k. The innermost layer (d=1) keeps full base alpha.
func fadeAlpha(base uint8, d, radius int, k float64) uint8 {
	if k <= 0 || radius <= 0 {
		return base
	}
	scale := 1 - float64(d-1)/float64(radius)*k
	if scale < 0 {
		scale = 0
	}
	return uint8(float64(base)*scale + 0.5)
}

// CompositeRing draws the ring overlay onto the source frame, producing the
// combined view the dashboard shows when the ring toggle is on.
func CompositeRing(frame image.Image, ring *RingResult) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(ring.ImageBase64)
	if err != nil {
		return nil, computeErr("decode ring overlay", err)
	}
	overlay, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, computeErr("decode ring overlay", err)
	}
	return imaging.Overlay(frame, overlay, image.Pt(0, 0), 1.0), nil
}
