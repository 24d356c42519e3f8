package staging

import (
	"fmt"
	"strings"
)

// ReportInput bundles everything the narrative report needs. Clinical
// fields are passed as plain strings so the report stays decoupled from the
// dataset layer.
type ReportInput struct {
	PatientID   string
	PatientName string
	Age         string
	Sex         string

	Concepts   Concepts
	Assessment Assessment
}

// BuildReport assembles the narrative report text shown in the dashboard's
// report panel and embedded in the PDF export. Output is deterministic for
// identical inputs.
func BuildReport(in ReportInput) string {
	var b strings.Builder

	b.WriteString("ULTRASOUND STAGING REVIEW\n")
	b.WriteString(strings.Repeat("=", 40))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Patient: %s", in.PatientID)
	if in.PatientName != "" {
		fmt.Fprintf(&b, " (%s)", in.PatientName)
	}
	b.WriteString("\n")
	if in.Age != "" || in.Sex != "" {
		fmt.Fprintf(&b, "Age/Sex: %s / %s\n", orDash(in.Age), orDash(in.Sex))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Predicted T stage: %s (confidence: %s)\n", in.Assessment.TStage, in.Assessment.Confidence)
	fmt.Fprintf(&b, "Predicted N stage: %s\n", in.Assessment.NStage)
	fmt.Fprintf(&b, "Composite score:   %.3f\n\n", in.Assessment.CompositeScore)

	b.WriteString("Concept indices\n")
	fmt.Fprintf(&b, "  1. Serosal integrity (SII):    %.3f  %s\n",
		in.Concepts.SerosalIntegrity, gradeSII(in.Concepts.SerosalIntegrity))
	fmt.Fprintf(&b, "  2. Boundary correlation (BCI): %.3f  %s\n",
		in.Concepts.BoundaryCorrelation, gradeBCI(in.Concepts.BoundaryCorrelation))
	fmt.Fprintf(&b, "  3. Curvature risk (CRI):       %.3f  %s\n\n",
		in.Concepts.CurvatureRisk, gradeCRI(in.Concepts.CurvatureRisk))

	fmt.Fprintf(&b, "Lesion size: %.1f mm\n", in.Concepts.TumorSizeMM)
	fmt.Fprintf(&b, "Suspicious boundary regions: %d\n", in.Concepts.DangerRegions)
	fmt.Fprintf(&b, "Suspicious lymph nodes: %d\n\n", in.Concepts.LymphNodes)

	b.WriteString("Interpretation\n")
	fmt.Fprintf(&b, "  %s\n\n", in.Assessment.Explanation)

	b.WriteString("Note: rule-based estimate from manually adjusted concept\n")
	b.WriteString("values; not a diagnostic device. Final staging requires\n")
	b.WriteString("pathology confirmation.\n")

	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func gradeSII(v float64) string {
	switch {
	case v > 0.3:
		return "(boundary wall clearly visible)"
	case v > 0.15:
		return "(boundary wall partially visible)"
	default:
		return "(boundary wall blurred or absent)"
	}
}

func gradeBCI(v float64) string {
	switch {
	case v > 0.6:
		return "(inside/outside textures diverge; wall likely intact)"
	case v > 0.3:
		return "(moderate texture similarity across boundary)"
	default:
		return "(textures merge across boundary; possible breakthrough)"
	}
}

func gradeCRI(v float64) string {
	switch {
	case v > 0.6:
		return "(sharp unguarded protrusions present)"
	case v > 0.3:
		return "(some irregular protrusions)"
	default:
		return "(contour protrusions look guarded)"
	}
}
