package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/gastric-review/internal/annotation"
)

// ROIResult contains a cropped and optionally scaled region of interest.
type ROIResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`

	// Box is the region that was extracted, in source-image coordinates.
	Box annotation.Bounds `json:"box"`
}

// CropROI extracts a rectangular region from a frame, scaling it for the
// detail view. Scale > 1 zooms in; 1.0 keeps the native size.
func CropROI(img image.Image, box annotation.Bounds, scale float64) (*ROIResult, error) {
	bounds := img.Bounds()

	if box.X1 < bounds.Min.X || box.Y1 < bounds.Min.Y || box.X2 > bounds.Max.X || box.Y2 > bounds.Max.Y {
		return nil, inputErr("crop roi", fmt.Errorf(
			"region (%d,%d)-(%d,%d) outside frame bounds (%d,%d)-(%d,%d)",
			box.X1, box.Y1, box.X2, box.Y2,
			bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y))
	}
	if box.X1 >= box.X2 || box.Y1 >= box.Y2 {
		return nil, inputErr("crop roi", fmt.Errorf("invalid region: x1 must be < x2, y1 must be < y2"))
	}

	cropped := imaging.Crop(img, image.Rect(box.X1, box.Y1, box.X2, box.Y2))

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, computeErr("encode roi", err)
	}

	return &ROIResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Box:         box,
	}, nil
}

// LesionROI crops the annotated lesion region out of a frame with a margin
// around it, the zoom the dashboard shows next to the full frame.
//
// Returns an input error when the annotation yields no usable points.
func LesionROI(img image.Image, doc *annotation.Document, margin int, scale float64) (*ROIResult, error) {
	box := annotation.LesionBounds(doc)
	if box == nil {
		return nil, inputErr("lesion roi", fmt.Errorf("annotation has no usable points"))
	}

	bounds := img.Bounds()
	expanded := box.Expand(margin, bounds.Max.X, bounds.Max.Y)
	return CropROI(img, expanded, scale)
}

// DrawDetectionBox paints a rectangular outline onto a copy of the frame,
// marking the detected ROI for the overview image. The frame itself is not
// mutated.
func DrawDetectionBox(img image.Image, box annotation.Bounds, boxColor color.NRGBA, thickness int) image.Image {
	if thickness < 1 {
		thickness = 1
	}

	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	for t := 0; t < thickness; t++ {
		for x := box.X1 - t; x <= box.X2+t; x++ {
			setInBounds(out, x, box.Y1-t, boxColor)
			setInBounds(out, x, box.Y2+t, boxColor)
		}
		for y := box.Y1 - t; y <= box.Y2+t; y++ {
			setInBounds(out, box.X1-t, y, boxColor)
			setInBounds(out, box.X2+t, y, boxColor)
		}
	}
	return out
}

func setInBounds(img *image.NRGBA, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetNRGBA(x, y, c)
	}
}
