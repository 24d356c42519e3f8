// Package export renders the dashboard's CSV and PDF exports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ironsheep/gastric-review/internal/dataset"
)

// RosterRow is one line of the patient roster export.
type RosterRow struct {
	ID               string
	Name             string
	Age              string
	Sex              string
	TumorLengthCM    string
	TumorThicknessCM string
	CEA              string
	CA199            string
	Differentiation  string
	Lauren           string
	FrameCount       int
	Annotated        int

	// Staging fields are empty when no assessment has been run.
	TStage         string
	NStage         string
	CompositeScore float64
}

var csvHeader = []string{
	"patient_id", "name", "age", "sex",
	"tumor_length_cm", "tumor_thickness_cm", "cea", "ca199",
	"differentiation", "lauren",
	"frame_count", "annotated_frames",
	"t_stage", "n_stage", "composite_score",
}

// RosterFromStore builds the roster rows for every patient in the store, in
// the store's ID order. Staging fields stay empty; assessments are per
// review session and never persisted.
func RosterFromStore(store *dataset.Store) []RosterRow {
	rows := make([]RosterRow, 0)
	for _, sum := range store.Patients() {
		row := RosterRow{
			ID:         sum.ID,
			Name:       sum.Name,
			Age:        sum.Age,
			Sex:        sum.Sex,
			FrameCount: sum.FrameCount,
			Annotated:  sum.Annotated,
		}
		if p, err := store.Patient(sum.ID); err == nil && p.Clinical != nil {
			row.TumorLengthCM = p.Clinical.TumorLengthCM
			row.TumorThicknessCM = p.Clinical.TumorThicknessCM
			row.CEA = p.Clinical.CEA
			row.CA199 = p.Clinical.CA199
			row.Differentiation = p.Clinical.ConceptFeatures.Differentiation
			row.Lauren = p.Clinical.ConceptFeatures.Lauren
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes the roster as UTF-8 CSV with a header row. Row order is
// preserved, so callers control sorting.
func WriteCSV(w io.Writer, rows []RosterRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range rows {
		composite := ""
		if r.TStage != "" {
			composite = strconv.FormatFloat(r.CompositeScore, 'f', 3, 64)
		}
		record := []string{
			r.ID, r.Name, r.Age, r.Sex,
			r.TumorLengthCM, r.TumorThicknessCM, r.CEA, r.CA199,
			r.Differentiation, r.Lauren,
			strconv.Itoa(r.FrameCount), strconv.Itoa(r.Annotated),
			r.TStage, r.NStage, composite,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
