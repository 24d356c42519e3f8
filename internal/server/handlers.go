package server

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"

	"github.com/ironsheep/gastric-review/internal/annotation"
	"github.com/ironsheep/gastric-review/internal/export"
	"github.com/ironsheep/gastric-review/internal/imaging"
	"github.com/ironsheep/gastric-review/internal/ocr"
	"github.com/ironsheep/gastric-review/internal/staging"
)

// handlePatients serves the patient list.
func (s *Server) handlePatients(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"patients": s.store.Patients(),
	})
}

// handlePatient serves one patient's clinical record and frame list.
// Loading a patient evicts the previous patient's cached frames, so the
// cache working set stays bounded to the patient being reviewed.
func (s *Server) handlePatient(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := s.store.Patient(id)
	if err != nil {
		s.respondError(w, err)
		return
	}

	for _, other := range s.store.Patients() {
		if other.ID == id {
			continue
		}
		if dir, err := s.store.PatientDir(other.ID); err == nil {
			s.cache.EvictPatient(dir)
		}
	}

	s.respondJSON(w, http.StatusOK, p)
}

// handleFrame proxies a frame image from the dataset.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	path, err := s.store.FramePath(r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	http.ServeFile(w, r, path)
}

// ringParams selects the lesion source and ring appearance.
//
// Source "annotation" (default) rasterizes the frame's polygon annotation;
// source "mask" thresholds the frame itself as a raster mask. Appearance
// fields fall back to the configured defaults when omitted.
type ringParams struct {
	PatientID string `json:"patient_id"`
	Frame     string `json:"frame"`
	Source    string `json:"source,omitempty"`

	Radius       *int     `json:"radius,omitempty"`
	Color        string   `json:"color,omitempty"`
	Alpha        *uint8   `json:"alpha,omitempty"`
	FadeStrength *float64 `json:"fade_strength,omitempty"`

	// Composite additionally returns the overlay drawn onto the frame.
	Composite bool `json:"composite,omitempty"`
}

// ringResponse is the ring overlay plus its data URI for direct display.
type ringResponse struct {
	*imaging.RingResult
	DataURI         string `json:"data_uri"`
	CompositeBase64 string `json:"composite_base64,omitempty"`
}

func (s *Server) handleRing(w http.ResponseWriter, r *http.Request) {
	var params ringParams
	if err := decodeBody(r, &params); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	opts := imaging.RingOptions{
		Radius:       s.cfg.Ring.Radius,
		Color:        s.cfg.Ring.Color,
		Alpha:        s.cfg.Ring.Alpha,
		FadeStrength: s.cfg.Ring.FadeStrength,
	}
	if params.Radius != nil {
		opts.Radius = *params.Radius
	}
	if params.Color != "" {
		opts.Color = params.Color
	}
	if params.Alpha != nil {
		opts.Alpha = *params.Alpha
	}
	if params.FadeStrength != nil {
		opts.FadeStrength = *params.FadeStrength
	}

	src, err := s.maskSource(params)
	if err != nil {
		s.respondError(w, err)
		return
	}

	ring, err := imaging.GenerateRing(src, opts)
	if err != nil {
		s.respondError(w, err)
		return
	}

	resp := ringResponse{RingResult: ring, DataURI: ring.DataURI()}

	if params.Composite {
		framePath, err := s.store.FramePath(params.PatientID, params.Frame)
		if err != nil {
			s.respondError(w, err)
			return
		}
		frame, err := s.cache.Load(framePath)
		if err != nil {
			s.respondError(w, err)
			return
		}
		combined, err := imaging.CompositeRing(frame, ring)
		if err != nil {
			s.respondError(w, err)
			return
		}
		encoded, err := encodePNGBase64(combined)
		if err != nil {
			s.respondError(w, err)
			return
		}
		resp.CompositeBase64 = encoded
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// maskSource builds the MaskSource selected by the ring parameters.
func (s *Server) maskSource(params ringParams) (imaging.MaskSource, error) {
	switch params.Source {
	case "", "annotation":
		doc, err := s.store.Annotation(params.PatientID, params.Frame)
		if err != nil {
			return nil, err
		}

		width, height := doc.ImageWidth, doc.ImageHeight
		if width == 0 || height == 0 {
			// Older annotation files omit dimensions; take them from
			// the frame itself.
			framePath, err := s.store.FramePath(params.PatientID, params.Frame)
			if err != nil {
				return nil, err
			}
			frame, err := s.cache.Load(framePath)
			if err != nil {
				return nil, err
			}
			width = frame.Bounds().Dx()
			height = frame.Bounds().Dy()
		}

		return &imaging.PolygonSource{
			Shapes: annotation.FilterByKeywords(doc.Polygons(), annotation.LesionKeywords),
			Width:  width,
			Height: height,
		}, nil

	case "mask":
		framePath, err := s.store.FramePath(params.PatientID, params.Frame)
		if err != nil {
			return nil, err
		}
		img, err := s.cache.Load(framePath)
		if err != nil {
			return nil, err
		}
		return &imaging.RasterSource{
			Img: img,
			Heuristic: imaging.ForegroundHeuristic{
				AlphaThreshold: s.cfg.Mask.AlphaThreshold,
				GreenDominance: s.cfg.Mask.GreenDominance,
			},
			SmoothSigma: s.cfg.Mask.SmoothSigma,
		}, nil

	default:
		return nil, &imaging.Error{
			Kind: imaging.KindInput,
			Op:   "ring",
			Err:  fmt.Errorf("unknown source %q", params.Source),
		}
	}
}

type roiParams struct {
	PatientID string  `json:"patient_id"`
	Frame     string  `json:"frame"`
	Margin    int     `json:"margin,omitempty"`
	Scale     float64 `json:"scale,omitempty"`

	// Overview additionally returns the full frame with the detection box
	// outlined, for the side-by-side view.
	Overview bool `json:"overview,omitempty"`
}

// roiResponse is the cropped ROI plus the optional boxed overview frame.
type roiResponse struct {
	*imaging.ROIResult
	OverviewBase64 string `json:"overview_base64,omitempty"`
}

func (s *Server) handleROI(w http.ResponseWriter, r *http.Request) {
	var params roiParams
	if err := decodeBody(r, &params); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if params.Scale == 0 {
		params.Scale = 2.0
	}
	if params.Margin == 0 {
		params.Margin = 16
	}

	doc, err := s.store.Annotation(params.PatientID, params.Frame)
	if err != nil {
		s.respondError(w, err)
		return
	}
	framePath, err := s.store.FramePath(params.PatientID, params.Frame)
	if err != nil {
		s.respondError(w, err)
		return
	}
	frame, err := s.cache.Load(framePath)
	if err != nil {
		s.respondError(w, err)
		return
	}

	roi, err := imaging.LesionROI(frame, doc, params.Margin, params.Scale)
	if err != nil {
		s.respondError(w, err)
		return
	}

	resp := roiResponse{ROIResult: roi}
	if params.Overview {
		boxed := imaging.DrawDetectionBox(frame, roi.Box,
			color.NRGBA{R: 255, G: 212, B: 0, A: 255}, 2)
		encoded, err := encodePNGBase64(boxed)
		if err != nil {
			s.respondError(w, err)
			return
		}
		resp.OverviewBase64 = encoded
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type stageParams struct {
	PatientID string           `json:"patient_id,omitempty"`
	Concepts  staging.Concepts `json:"concepts"`
}

type stageResponse struct {
	Assessment *staging.Assessment `json:"assessment"`
	Report     string              `json:"report"`
}

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	var params stageParams
	if err := decodeBody(r, &params); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	assessment, err := staging.Evaluate(params.Concepts)
	if err != nil {
		s.respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}

	in := staging.ReportInput{
		PatientID:  params.PatientID,
		Concepts:   params.Concepts,
		Assessment: *assessment,
	}
	if params.PatientID != "" {
		if p, err := s.store.Patient(params.PatientID); err == nil && p.Clinical != nil {
			in.PatientName = p.Clinical.Name
			in.Age = p.Clinical.Age
			in.Sex = p.Clinical.Sex
		}
	}

	s.respondJSON(w, http.StatusOK, stageResponse{
		Assessment: assessment,
		Report:     staging.BuildReport(in),
	})
}

type measureParams struct {
	PatientID      string  `json:"patient_id"`
	Frame          string  `json:"frame"`
	X1             int     `json:"x1"`
	Y1             int     `json:"y1"`
	X2             int     `json:"x2"`
	Y2             int     `json:"y2"`
	PixelSpacingMM float64 `json:"pixel_spacing_mm,omitempty"`
}

func (s *Server) handleMeasure(w http.ResponseWriter, r *http.Request) {
	var params measureParams
	if err := decodeBody(r, &params); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if params.PixelSpacingMM == 0 {
		params.PixelSpacingMM = s.cfg.Measure.PixelSpacingMM
	}

	frame, err := s.loadFrame(params.PatientID, params.Frame)
	if err != nil {
		s.respondError(w, err)
		return
	}

	result, err := imaging.MeasureCaliper(frame, params.X1, params.Y1, params.X2, params.Y2, params.PixelSpacingMM)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type gridParams struct {
	PatientID string  `json:"patient_id"`
	Frame     string  `json:"frame"`
	SpacingMM float64 `json:"spacing_mm,omitempty"`
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	var params gridParams
	if err := decodeBody(r, &params); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if params.SpacingMM == 0 {
		params.SpacingMM = 5
	}

	frame, err := s.loadFrame(params.PatientID, params.Frame)
	if err != nil {
		s.respondError(w, err)
		return
	}

	result, err := imaging.ScaleGrid(frame, params.SpacingMM, s.cfg.Measure.PixelSpacingMM,
		color.NRGBA{R: 255, G: 0, B: 0, A: 128})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type scanParams struct {
	PatientID string     `json:"patient_id"`
	Frame     string     `json:"frame"`
	Region    ocr.Region `json:"region"`
	Language  string     `json:"language,omitempty"`
}

func (s *Server) handleScanBanner(w http.ResponseWriter, r *http.Request) {
	var params scanParams
	if err := decodeBody(r, &params); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if params.Language == "" {
		params.Language = "eng"
	}

	frame, err := s.loadFrame(params.PatientID, params.Frame)
	if err != nil {
		s.respondError(w, err)
		return
	}

	result, err := ocr.Scan(frame, params.Region, params.Language)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	rows := export.RosterFromStore(s.store)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="patients.csv"`)
	if err := export.WriteCSV(w, rows); err != nil {
		s.log.Error().Err(err).Msg("csv export failed")
	}
}

type pdfParams struct {
	PatientID string           `json:"patient_id"`
	Concepts  staging.Concepts `json:"concepts"`

	// Frame, when set, embeds the frame with the ring overlay composited.
	Frame string `json:"frame,omitempty"`
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	var params pdfParams
	if err := decodeBody(r, &params); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	p, err := s.store.Patient(params.PatientID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	assessment, err := staging.Evaluate(params.Concepts)
	if err != nil {
		s.respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}

	in := staging.ReportInput{
		PatientID:  params.PatientID,
		Concepts:   params.Concepts,
		Assessment: *assessment,
	}
	var clinicalRows [][2]string
	if p.Clinical != nil {
		in.PatientName = p.Clinical.Name
		in.Age = p.Clinical.Age
		in.Sex = p.Clinical.Sex
		clinicalRows = [][2]string{
			{"Name", p.Clinical.Name},
			{"Age", p.Clinical.Age},
			{"Sex", p.Clinical.Sex},
			{"Tumor length (cm)", p.Clinical.TumorLengthCM},
			{"Tumor thickness (cm)", p.Clinical.TumorThicknessCM},
			{"CEA", p.Clinical.CEA},
			{"CA19-9", p.Clinical.CA199},
			{"Differentiation", p.Clinical.ConceptFeatures.Differentiation},
			{"Lauren type", p.Clinical.ConceptFeatures.Lauren},
		}
	}

	pdfIn := export.PDFInput{
		PatientID:    params.PatientID,
		ReportText:   staging.BuildReport(in),
		ClinicalRows: clinicalRows,
	}

	if params.Frame != "" {
		framePNG, err := s.framePNGWithRing(params.PatientID, params.Frame)
		if err != nil {
			s.respondError(w, err)
			return
		}
		pdfIn.FramePNG = framePNG
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-report.pdf"`, params.PatientID))
	if err := export.WritePDF(w, pdfIn); err != nil {
		s.log.Error().Err(err).Msg("pdf export failed")
	}
}

// framePNGWithRing renders a frame with its annotation ring composited,
// falling back to the plain frame when the frame has no annotation.
func (s *Server) framePNGWithRing(patientID, frameName string) ([]byte, error) {
	frame, err := s.loadFrame(patientID, frameName)
	if err != nil {
		return nil, err
	}

	out := frame
	if doc, err := s.store.Annotation(patientID, frameName); err == nil {
		src := &imaging.PolygonSource{
			Shapes: annotation.FilterByKeywords(doc.Polygons(), annotation.LesionKeywords),
			Width:  frame.Bounds().Dx(),
			Height: frame.Bounds().Dy(),
		}
		ring, err := imaging.GenerateRing(src, imaging.RingOptions{
			Radius:       s.cfg.Ring.Radius,
			Color:        s.cfg.Ring.Color,
			Alpha:        s.cfg.Ring.Alpha,
			FadeStrength: s.cfg.Ring.FadeStrength,
		})
		if err != nil {
			return nil, err
		}
		out, err = imaging.CompositeRing(frame, ring)
		if err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// loadFrame resolves and loads one of a patient's frames through the cache.
func (s *Server) loadFrame(patientID, frameName string) (image.Image, error) {
	path, err := s.store.FramePath(patientID, frameName)
	if err != nil {
		return nil, err
	}
	return s.cache.Load(path)
}

func encodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode composite: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
