package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ironsheep/gastric-review/internal/config"
	"github.com/ironsheep/gastric-review/internal/dataset"
	"github.com/ironsheep/gastric-review/internal/ocr"
)

// newTestServer builds a server over a one-patient dataset with a real PNG
// frame and a square lesion annotation.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	root := t.TempDir()

	imgDir := filepath.Join(root, "P001", "images")
	annDir := filepath.Join(root, "P001", "annotations")
	for _, dir := range []string{imgDir, annDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	frame := image.NewNRGBA(image.Rect(0, 0, 120, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 120; x++ {
			frame.SetNRGBA(x, y, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(imgDir, "frame_01.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	annotationJSON := `{
		"imageWidth": 120, "imageHeight": 120,
		"shapes": [{"label": "tumor_lesion", "shape_type": "polygon",
			"points": [[40,40],[60,40],[60,60],[40,60]]}]
	}`
	if err := os.WriteFile(filepath.Join(annDir, "frame_01.json"), []byte(annotationJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	clinicalJSON := `{"name": "Case 001", "age": "64", "sex": "Male",
		"tumor_length_cm": "3.2", "concept_features": {"lauren": "intestinal"}}`
	if err := os.WriteFile(filepath.Join(root, "P001", "clinical.json"), []byte(clinicalJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Server.DataDir = root

	store, err := dataset.Open(root, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ts := httptest.NewServer(New(cfg, store, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandlePatients(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/patients")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var body struct {
		Patients []dataset.Summary `json:"patients"`
	}
	decodeJSON(t, resp, &body)
	if len(body.Patients) != 1 || body.Patients[0].ID != "P001" {
		t.Errorf("patients: got %+v", body.Patients)
	}
	if body.Patients[0].Annotated != 1 {
		t.Errorf("annotated: got %d, want 1", body.Patients[0].Annotated)
	}
}

func TestHandlePatient_NotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/patients/NOPE")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestHandleFrame(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/patients/P001/frames/frame_01.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if _, err := png.Decode(resp.Body); err != nil {
		t.Errorf("served frame is not a PNG: %v", err)
	}
}

func TestHandleRing(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/ring",
		`{"patient_id": "P001", "frame": "frame_01.png", "radius": 5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var body struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RingPixels int    `json:"ring_pixels"`
		Radius     int    `json:"radius"`
		DataURI    string `json:"data_uri"`
	}
	decodeJSON(t, resp, &body)

	if body.Width != 120 || body.Height != 120 {
		t.Errorf("dimensions: got %dx%d, want 120x120", body.Width, body.Height)
	}
	if body.Radius != 5 {
		t.Errorf("radius: got %d, want 5", body.Radius)
	}
	if body.RingPixels == 0 {
		t.Error("ring_pixels: got 0, want > 0")
	}
	if !strings.HasPrefix(body.DataURI, "data:image/png;base64,") {
		t.Errorf("data_uri prefix: got %q", body.DataURI[:min(len(body.DataURI), 30)])
	}
}

func TestHandleRing_Composite(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/ring",
		`{"patient_id": "P001", "frame": "frame_01.png", "radius": 5, "composite": true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var body struct {
		CompositeBase64 string `json:"composite_base64"`
	}
	decodeJSON(t, resp, &body)
	if body.CompositeBase64 == "" {
		t.Error("composite_base64 missing from response")
	}
}

func TestHandleRing_UnknownSource(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/ring",
		`{"patient_id": "P001", "frame": "frame_01.png", "source": "magic"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", resp.StatusCode)
	}
}

func TestHandleRing_NoAnnotation(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/ring",
		`{"patient_id": "P001", "frame": "missing.png"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestHandleROI(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/roi",
		`{"patient_id": "P001", "frame": "frame_01.png", "margin": 10, "scale": 2.0}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var body struct {
		Width int `json:"width"`
		Box   struct {
			X1 int `json:"x1"`
			Y1 int `json:"y1"`
			X2 int `json:"x2"`
			Y2 int `json:"y2"`
		} `json:"box"`
	}
	decodeJSON(t, resp, &body)

	// Lesion box {40,40,60,60} expanded by the margin, doubled by the scale.
	if body.Box.X1 != 30 || body.Box.Y1 != 30 || body.Box.X2 != 70 || body.Box.Y2 != 70 {
		t.Errorf("box: got %+v", body.Box)
	}
	if body.Width != 80 {
		t.Errorf("width: got %d, want 80", body.Width)
	}
}

func TestHandleROI_Overview(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/roi",
		`{"patient_id": "P001", "frame": "frame_01.png", "overview": true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var body struct {
		OverviewBase64 string `json:"overview_base64"`
	}
	decodeJSON(t, resp, &body)
	if body.OverviewBase64 == "" {
		t.Error("overview_base64 missing from response")
	}
}

func TestHandleStage(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/stage", `{
		"patient_id": "P001",
		"concepts": {
			"sii": 0.3, "bci": 0.1, "cri": 0.1,
			"tumor_size_mm": 10, "circularity": 0.8, "irregularity": 1.1,
			"lymph_nodes": 2
		}
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var body struct {
		Assessment struct {
			TStage string `json:"t_stage"`
			NStage string `json:"n_stage"`
		} `json:"assessment"`
		Report string `json:"report"`
	}
	decodeJSON(t, resp, &body)

	if body.Assessment.TStage != "T1-T2" {
		t.Errorf("t_stage: got %q, want T1-T2", body.Assessment.TStage)
	}
	if body.Assessment.NStage != "N1" {
		t.Errorf("n_stage: got %q, want N1", body.Assessment.NStage)
	}
	if !strings.Contains(body.Report, "Case 001") {
		t.Error("report does not carry the patient name")
	}
}

func TestHandleStage_InvalidConcepts(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/stage", `{"concepts": {"sii": 1.5}}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", resp.StatusCode)
	}
}

func TestHandleMeasure(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/measure",
		`{"patient_id": "P001", "frame": "frame_01.png", "x1": 10, "y1": 10, "x2": 40, "y2": 50}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var body struct {
		DistancePixels float64 `json:"distance_pixels"`
		DistanceMM     float64 `json:"distance_mm"`
	}
	decodeJSON(t, resp, &body)

	if body.DistancePixels != 50 {
		t.Errorf("distance_pixels: got %g, want 50", body.DistancePixels)
	}
	if body.DistanceMM != 5 {
		t.Errorf("distance_mm: got %g, want 5 at the default 0.1mm spacing", body.DistanceMM)
	}
}

func TestHandleGrid(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/grid",
		`{"patient_id": "P001", "frame": "frame_01.png", "spacing_mm": 5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var body struct {
		SpacingPixels int `json:"spacing_pixels"`
	}
	decodeJSON(t, resp, &body)
	if body.SpacingPixels != 50 {
		t.Errorf("spacing_pixels: got %d, want 50", body.SpacingPixels)
	}
}

func TestHandleScanBanner_Unavailable(t *testing.T) {
	if ocr.Available() {
		t.Skip("binary built with OCR support")
	}
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/scan-banner",
		`{"patient_id": "P001", "frame": "frame_01.png", "region": {"x1": 0, "y1": 0, "x2": 120, "y2": 20}}`)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", resp.StatusCode)
	}
}

func TestHandleExportCSV(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/export/csv")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type: got %q", ct)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines: got %d, want header plus one row", len(lines))
	}
	if !strings.Contains(lines[1], "P001") || !strings.Contains(lines[1], "Case 001") {
		t.Errorf("roster row: got %q", lines[1])
	}
}

func TestHandleExportPDF(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/export/pdf", `{
		"patient_id": "P001",
		"frame": "frame_01.png",
		"concepts": {"sii": 0.3, "tumor_size_mm": 25, "circularity": 0.7}
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type: got %q", ct)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("response is not a PDF document")
	}
}

func TestHandleRing_BadJSON(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/ring", `{"patient_id": "P001", "bogus": 1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

