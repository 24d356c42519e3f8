package staging

import (
	"math"
	"strings"
	"testing"
)

func TestEvaluate_CompositeScore(t *testing.T) {
	c := Concepts{
		SerosalIntegrity:    0.4,
		BoundaryCorrelation: 0.2,
		CurvatureRisk:       0.1,
		TumorSizeMM:         25,
	}

	a, err := Evaluate(c)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	want := 0.5*0.4 + 0.3*0.2 + 0.2*0.1
	if math.Abs(a.CompositeScore-want) > 1e-9 {
		t.Errorf("composite: got %g, want %g", a.CompositeScore, want)
	}
}

func TestEvaluate_StageTable(t *testing.T) {
	tests := []struct {
		name       string
		c          Concepts
		wantStage  string
		wantConf   string
	}{
		{
			name: "small regular visible boundary",
			c: Concepts{SerosalIntegrity: 0.3, TumorSizeMM: 10,
				Circularity: 0.8, Irregularity: 1.1},
			wantStage: "T1-T2", wantConf: "Medium",
		},
		{
			name: "small regular weak boundary",
			c: Concepts{SerosalIntegrity: 0.1, TumorSizeMM: 10,
				Circularity: 0.8, Irregularity: 1.1},
			wantStage: "T2-T3", wantConf: "Low",
		},
		{
			name:      "small irregular",
			c:         Concepts{SerosalIntegrity: 0.5, TumorSizeMM: 10, Circularity: 0.4},
			wantStage: "T2-T3", wantConf: "Low",
		},
		{
			name: "medium clear boundary",
			c: Concepts{SerosalIntegrity: 0.4, TumorSizeMM: 20,
				Circularity: 0.7},
			wantStage: "T2", wantConf: "Medium",
		},
		{
			name:      "medium moderate boundary",
			c:         Concepts{SerosalIntegrity: 0.3, TumorSizeMM: 20},
			wantStage: "T3", wantConf: "Medium",
		},
		{
			name:      "medium weak boundary",
			c:         Concepts{SerosalIntegrity: 0.2, TumorSizeMM: 20},
			wantStage: "T3-T4", wantConf: "Medium",
		},
		{
			name:      "medium blurred boundary",
			c:         Concepts{SerosalIntegrity: 0.1, TumorSizeMM: 20},
			wantStage: "T4", wantConf: "High",
		},
		{
			name:      "large visible boundary",
			c:         Concepts{SerosalIntegrity: 0.35, TumorSizeMM: 40},
			wantStage: "T3", wantConf: "Medium",
		},
		{
			name:      "large blurred boundary",
			c:         Concepts{SerosalIntegrity: 0.1, TumorSizeMM: 40},
			wantStage: "T4", wantConf: "High",
		},
		{
			name:      "very large partially visible",
			c:         Concepts{SerosalIntegrity: 0.3, TumorSizeMM: 60},
			wantStage: "T3-T4", wantConf: "Medium",
		},
		{
			name:      "very large blurred",
			c:         Concepts{SerosalIntegrity: 0.1, TumorSizeMM: 60},
			wantStage: "T4", wantConf: "High",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Evaluate(tt.c)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if a.TStage != tt.wantStage {
				t.Errorf("stage: got %s, want %s", a.TStage, tt.wantStage)
			}
			if a.Confidence != tt.wantConf {
				t.Errorf("confidence: got %s, want %s", a.Confidence, tt.wantConf)
			}
		})
	}
}

func TestEvaluate_DangerRegionEscalation(t *testing.T) {
	// Medium tumor with moderate boundary is T3; five danger regions push
	// it to T3-T4.
	c := Concepts{SerosalIntegrity: 0.3, TumorSizeMM: 20, DangerRegions: 5}

	a, err := Evaluate(c)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if a.TStage != "T3-T4" {
		t.Errorf("stage: got %s, want T3-T4", a.TStage)
	}
	if !strings.Contains(a.Explanation, "5 suspicious boundary regions") {
		t.Errorf("explanation missing escalation note: %s", a.Explanation)
	}

	// A T4 prediction is never escalated further.
	c = Concepts{SerosalIntegrity: 0.1, TumorSizeMM: 20, DangerRegions: 9}
	a, err = Evaluate(c)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if a.TStage != "T4" {
		t.Errorf("stage: got %s, want T4", a.TStage)
	}
}

func TestEvaluate_NStage(t *testing.T) {
	tests := []struct {
		nodes int
		want  string
	}{
		{0, "N0"}, {1, "N1"}, {2, "N1"}, {3, "N2"}, {6, "N2"}, {7, "N3"}, {12, "N3"},
	}

	for _, tt := range tests {
		a, err := Evaluate(Concepts{TumorSizeMM: 20, SerosalIntegrity: 0.3, LymphNodes: tt.nodes})
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if a.NStage != tt.want {
			t.Errorf("nodes=%d: got %s, want %s", tt.nodes, a.NStage, tt.want)
		}
	}
}

func TestEvaluate_Validation(t *testing.T) {
	bad := []Concepts{
		{SerosalIntegrity: -0.1, TumorSizeMM: 20},
		{SerosalIntegrity: 1.2, TumorSizeMM: 20},
		{BoundaryCorrelation: 2, TumorSizeMM: 20},
		{TumorSizeMM: -5},
		{TumorSizeMM: 20, DangerRegions: -1},
	}
	for i, c := range bad {
		if _, err := Evaluate(c); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	c := Concepts{SerosalIntegrity: 0.27, BoundaryCorrelation: 0.61,
		CurvatureRisk: 0.33, TumorSizeMM: 34.5, DangerRegions: 3, LymphNodes: 2}

	first, err := Evaluate(c)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	second, err := Evaluate(c)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if *first != *second {
		t.Error("identical inputs produced different assessments")
	}
}
