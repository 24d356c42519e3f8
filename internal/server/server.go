// Package server exposes the review dashboard's HTTP JSON API.
//
// The browser front end is a thin presentation layer; every computation it
// shows (ring overlays, ROI zooms, staging, exports) runs behind these
// endpoints. All responses are JSON except the frame proxy and the export
// downloads.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/gastric-review/internal/config"
	"github.com/ironsheep/gastric-review/internal/dataset"
	"github.com/ironsheep/gastric-review/internal/imaging"
	"github.com/ironsheep/gastric-review/internal/ocr"
)

// Server handles the dashboard API.
type Server struct {
	cfg   *config.Config
	store *dataset.Store
	cache *imaging.FrameCache
	log   zerolog.Logger
}

// New creates a server over an opened dataset store.
func New(cfg *config.Config, store *dataset.Store, log zerolog.Logger) *Server {
	return &Server{
		cfg:   cfg,
		store: store,
		cache: imaging.NewFrameCache(),
		log:   log.With().Str("component", "server").Logger(),
	}
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/patients", s.handlePatients)
	mux.HandleFunc("GET /api/patients/{id}", s.handlePatient)
	mux.HandleFunc("GET /api/patients/{id}/frames/{name}", s.handleFrame)

	mux.HandleFunc("POST /api/ring", s.handleRing)
	mux.HandleFunc("POST /api/roi", s.handleROI)
	mux.HandleFunc("POST /api/stage", s.handleStage)
	mux.HandleFunc("POST /api/measure", s.handleMeasure)
	mux.HandleFunc("POST /api/grid", s.handleGrid)
	mux.HandleFunc("POST /api/scan-banner", s.handleScanBanner)

	mux.HandleFunc("GET /api/export/csv", s.handleExportCSV)
	mux.HandleFunc("POST /api/export/pdf", s.handleExportPDF)

	return s.logRequests(mux)
}

// Run serves the API until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// logRequests wraps the handler with structured request logging.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// respondJSON writes v as a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

// respondError maps an error to its HTTP status and writes the envelope.
//
// Classification mirrors the pipeline's error taxonomy: bad input is 422,
// missing data is 404, failed loads are 502, OCR-less builds report 501,
// everything else is 500. The front end never receives a partial overlay:
// any failure produces only this envelope.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, dataset.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ocr.ErrUnavailable):
		status = http.StatusNotImplemented
	default:
		var e *imaging.Error
		if errors.As(err, &e) {
			switch e.Kind {
			case imaging.KindInput:
				status = http.StatusUnprocessableEntity
			case imaging.KindLoad:
				status = http.StatusBadGateway
			}
		}
	}

	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	s.respondJSON(w, status, errorBody{Error: err.Error()})
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
