// Package staging implements the dashboard's rule-based T/N-stage
// assessment: a fixed linear/threshold formula over manually adjusted
// pathology concept sliders. It is deliberately not a model: identical
// inputs always produce identical output.
package staging

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Concepts holds the slider values and morphology inputs the reviewer can
// adjust. The three index sliders live in [0,1].
type Concepts struct {
	// SerosalIntegrity (SII) measures how intact the outer boundary wall
	// looks; high values mean a clearly visible serosal line.
	SerosalIntegrity float64 `json:"sii"`

	// BoundaryCorrelation (BCI) measures inside/outside texture similarity
	// across the boundary; high values suggest breakthrough.
	BoundaryCorrelation float64 `json:"bci"`

	// CurvatureRisk (CRI) measures sharp protrusions without a boundary
	// wall behind them.
	CurvatureRisk float64 `json:"cri"`

	// TumorSizeMM is the equivalent lesion diameter in millimeters.
	TumorSizeMM float64 `json:"tumor_size_mm"`

	// Circularity in [0,1]; 1 is a perfect disc.
	Circularity float64 `json:"circularity"`

	// Irregularity is the perimeter-to-equivalent-circle ratio; 1 is
	// perfectly regular, larger is more ragged.
	Irregularity float64 `json:"irregularity"`

	// DangerRegions is the count of suspicious boundary segments flagged
	// during review.
	DangerRegions int `json:"danger_regions"`

	// LymphNodes is the number of suspicious lymph nodes identified.
	LymphNodes int `json:"lymph_nodes"`
}

// Size band thresholds in millimeters.
const (
	smallThresholdMM  = 15
	mediumThresholdMM = 30
	largeThresholdMM  = 50
)

// compositeWeights are the fixed SII/BCI/CRI weights of the composite score.
var compositeWeights = []float64{0.5, 0.3, 0.2}

// Assessment is the result of evaluating one set of concept values.
type Assessment struct {
	// CompositeScore is the weighted SII/BCI/CRI sum in [0,1].
	CompositeScore float64 `json:"composite_score"`

	// TStage is the predicted tumor stage, possibly a range ("T3-T4").
	TStage string `json:"t_stage"`

	// NStage is the nodal stage derived from the suspicious node count.
	NStage string `json:"n_stage"`

	// Confidence is "Low", "Medium" or "High".
	Confidence string `json:"confidence"`

	// Explanation is the one-line reasoning behind the predicted stage.
	Explanation string `json:"explanation"`
}

// Validate checks the concept values for ranges the formula cannot accept.
func (c *Concepts) Validate() error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"sii", c.SerosalIntegrity},
		{"bci", c.BoundaryCorrelation},
		{"cri", c.CurvatureRisk},
	} {
		if v.value < 0 || v.value > 1 {
			return fmt.Errorf("%s must be in [0,1], got %g", v.name, v.value)
		}
	}
	if c.TumorSizeMM < 0 {
		return fmt.Errorf("tumor_size_mm must be >= 0, got %g", c.TumorSizeMM)
	}
	if c.DangerRegions < 0 || c.LymphNodes < 0 {
		return fmt.Errorf("danger_regions and lymph_nodes must be >= 0")
	}
	return nil
}

// Evaluate applies the fixed staging formula to the concept values.
//
// The composite score is the weighted sum 0.5*SII + 0.3*BCI + 0.2*CRI. The
// T stage comes from a size-band × SII decision table; five or more danger
// regions escalate a non-T4 prediction by half a step. The N stage is a
// plain node-count threshold.
func Evaluate(c Concepts) (*Assessment, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	composite := floats.Dot(compositeWeights, []float64{
		c.SerosalIntegrity,
		c.BoundaryCorrelation,
		c.CurvatureRisk,
	})

	stage, confidence, explanation := tStage(c)

	// Many flagged boundary regions push a non-T4 estimate up half a step.
	if c.DangerRegions >= 5 && !strings.Contains(stage, "T4") {
		switch stage {
		case "T2":
			stage = "T2-T3"
		case "T3":
			stage = "T3-T4"
		}
		explanation = fmt.Sprintf("%s; %d suspicious boundary regions found", explanation, c.DangerRegions)
	}

	return &Assessment{
		CompositeScore: composite,
		TStage:         stage,
		NStage:         nStage(c.LymphNodes),
		Confidence:     confidence,
		Explanation:    explanation,
	}, nil
}

// tStage walks the size-band decision table.
func tStage(c Concepts) (stage, confidence, explanation string) {
	sii := c.SerosalIntegrity
	size := c.TumorSizeMM

	switch {
	case size < smallThresholdMM:
		// Small tumors may sit in dark regions, so boundary demands are
		// looser and shape regularity dominates.
		if c.Circularity > 0.7 && c.Irregularity < 1.3 {
			if sii > 0.2 {
				return "T1-T2", "Medium",
					fmt.Sprintf("Small tumor (%.1fmm), regular shape, visible boundary (SII %.2f); favors early stage", size, sii)
			}
			return "T2-T3", "Low",
				fmt.Sprintf("Small tumor (%.1fmm), weak boundary (SII %.2f); needs further assessment", size, sii)
		}
		return "T2-T3", "Low",
			fmt.Sprintf("Small tumor (%.1fmm) with irregular shape; combined review advised", size)

	case size < mediumThresholdMM:
		switch {
		case sii > 0.35 && c.Circularity > 0.6:
			return "T2", "Medium",
				fmt.Sprintf("Medium tumor (%.1fmm), clear boundary (SII %.2f); favors T2", size, sii)
		case sii > 0.25:
			return "T3", "Medium",
				fmt.Sprintf("Medium tumor (%.1fmm), moderate boundary (SII %.2f); favors T3", size, sii)
		case sii > 0.15:
			return "T3-T4", "Medium",
				fmt.Sprintf("Medium tumor (%.1fmm), weak boundary (SII %.2f); possible serosal invasion", size, sii)
		default:
			return "T4", "High",
				fmt.Sprintf("Medium tumor (%.1fmm), blurred boundary (SII %.2f); strongly suggests T4", size, sii)
		}

	case size < largeThresholdMM:
		switch {
		case sii > 0.3:
			return "T3", "Medium",
				fmt.Sprintf("Large tumor (%.1fmm), visible boundary (SII %.2f); favors T3", size, sii)
		case sii > 0.2:
			return "T3-T4", "Medium",
				fmt.Sprintf("Large tumor (%.1fmm), weak boundary (SII %.2f); possible serosal invasion", size, sii)
		default:
			return "T4", "High",
				fmt.Sprintf("Large tumor (%.1fmm), blurred boundary (SII %.2f); strongly suggests serosal breakthrough", size, sii)
		}

	default:
		if sii > 0.25 {
			return "T3-T4", "Medium",
				fmt.Sprintf("Very large tumor (%.1fmm), partially visible boundary (SII %.2f)", size, sii)
		}
		return "T4", "High",
			fmt.Sprintf("Very large tumor (%.1fmm), blurred boundary (SII %.2f); strongly suggests T4", size, sii)
	}
}

// nStage maps the suspicious node count to a nodal stage.
func nStage(nodes int) string {
	switch {
	case nodes == 0:
		return "N0"
	case nodes <= 2:
		return "N1"
	case nodes <= 6:
		return "N2"
	default:
		return "N3"
	}
}
