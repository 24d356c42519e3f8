package dataset

import (
	"encoding/json"
	"fmt"
	"os"
)

// ConceptFeatures are the pathology concept strings extracted from the
// clinical sheet. Values are free text as written by pathology ("Ki-67 70%",
// "CD8 scattered +", ...), kept verbatim for display.
type ConceptFeatures struct {
	Ki67            string `json:"ki67,omitempty"`
	CPS             string `json:"cps,omitempty"`
	PD1             string `json:"pd1,omitempty"`
	FoxP3           string `json:"foxp3,omitempty"`
	CD3             string `json:"cd3,omitempty"`
	CD4             string `json:"cd4,omitempty"`
	CD8             string `json:"cd8,omitempty"`
	Vascular        string `json:"vascular,omitempty"`
	Neural          string `json:"neural,omitempty"`
	Differentiation string `json:"differentiation,omitempty"`
	Lauren          string `json:"lauren,omitempty"`
}

// ClinicalRecord is one patient's clinical data file.
type ClinicalRecord struct {
	Name             string          `json:"name"`
	Age              string          `json:"age"`
	Sex              string          `json:"sex"`
	TumorLengthCM    string          `json:"tumor_length_cm"`
	TumorThicknessCM string          `json:"tumor_thickness_cm"`
	CEA              string          `json:"cea"`
	CA199            string          `json:"ca199"`
	PathologicStage  string          `json:"pathologic_stage,omitempty"`
	ConceptFeatures  ConceptFeatures `json:"concept_features"`
}

// loadClinical reads a clinical record file. A missing file is not an
// error: some patients have frames before their clinical sheet arrives.
func loadClinical(path string) (*ClinicalRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read clinical record: %w", err)
	}

	var rec ClinicalRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse clinical record: %w", err)
	}
	return &rec, nil
}
