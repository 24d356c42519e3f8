package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFInput bundles everything the single-patient PDF report needs.
type PDFInput struct {
	PatientID string
	Title     string

	// ReportText is the narrative report (staging.BuildReport output).
	ReportText string

	// ClinicalRows are label/value pairs rendered as a table.
	ClinicalRows [][2]string

	// FramePNG, when non-nil, is a PNG of the reviewed frame (usually with
	// the ring overlay composited) embedded below the report.
	FramePNG []byte
}

// WritePDF renders the patient report as an A4 PDF.
func WritePDF(w io.Writer, in PDFInput) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(in.Title, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	title := in.Title
	if title == "" {
		title = fmt.Sprintf("Ultrasound Staging Review - %s", in.PatientID)
	}
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(in.ClinicalRows) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, "Clinical data", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, row := range in.ClinicalRows {
			pdf.CellFormat(55, 6, row[0], "1", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, row[1], "1", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}

	if in.ReportText != "" {
		pdf.SetFont("Courier", "", 9)
		for _, line := range strings.Split(in.ReportText, "\n") {
			pdf.CellFormat(0, 4.5, line, "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}

	if in.FramePNG != nil {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("frame", opts, bytes.NewReader(in.FramePNG))
		// Fit within the content width, keeping the aspect ratio.
		pdf.ImageOptions("frame", 10, pdf.GetY(), 190, 0, false, opts, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}
