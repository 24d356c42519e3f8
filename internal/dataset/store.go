// Package dataset indexes the read-only ultrasound dataset on disk.
//
// The data root holds one directory per patient:
//
//	<root>/<patientID>/clinical.json
//	<root>/<patientID>/images/*.{jpg,png}
//	<root>/<patientID>/annotations/*.json
//
// Annotations pair with images by base name. The store never writes to the
// dataset; it only scans, serves paths, and re-scans when files change.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/gastric-review/internal/annotation"
)

// ErrNotFound is returned for unknown patients or frames.
var ErrNotFound = errors.New("not found")

var frameExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Frame is one ultrasound image belonging to a patient.
type Frame struct {
	// Name is the file name within the patient's images directory.
	Name string `json:"name"`

	// HasAnnotation reports whether a matching annotation file exists.
	HasAnnotation bool `json:"has_annotation"`
}

// Patient is one indexed patient.
type Patient struct {
	ID       string          `json:"id"`
	Clinical *ClinicalRecord `json:"clinical,omitempty"`
	Frames   []Frame         `json:"frames"`
}

// Summary is the patient-list view of one patient.
type Summary struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Age        string `json:"age,omitempty"`
	Sex        string `json:"sex,omitempty"`
	FrameCount int    `json:"frame_count"`
	Annotated  int    `json:"annotated"`
}

// Store is the in-memory index over the dataset directory.
// It is safe for concurrent use; Reindex swaps the index atomically.
type Store struct {
	root string
	log  zerolog.Logger

	mu       sync.RWMutex
	patients map[string]*Patient
	order    []string

	watcher *fsnotify.Watcher
}

// Open scans the data root and returns a ready store.
func Open(root string, log zerolog.Logger) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data root: %w", err)
	}

	s := &Store{
		root: abs,
		log:  log.With().Str("component", "dataset").Logger(),
	}
	if err := s.Reindex(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reindex rescans the dataset and atomically replaces the index.
// Patient directories are scanned concurrently.
func (s *Store) Reindex() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("failed to read data root: %w", err)
	}

	var (
		g        errgroup.Group
		resultMu sync.Mutex
	)
	g.SetLimit(8)
	patients := make(map[string]*Patient)

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		id := entry.Name()
		g.Go(func() error {
			p, err := s.scanPatient(id)
			if err != nil {
				return err
			}
			resultMu.Lock()
			patients[id] = p
			resultMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	order := make([]string, 0, len(patients))
	for id := range patients {
		order = append(order, id)
	}
	sort.Strings(order)

	s.mu.Lock()
	s.patients = patients
	s.order = order
	s.mu.Unlock()

	s.log.Info().Int("patients", len(order)).Msg("dataset indexed")
	return nil
}

// scanPatient builds the index entry for one patient directory.
func (s *Store) scanPatient(id string) (*Patient, error) {
	dir := filepath.Join(s.root, id)

	clinical, err := loadClinical(filepath.Join(dir, "clinical.json"))
	if err != nil {
		return nil, fmt.Errorf("patient %s: %w", id, err)
	}

	annotated := make(map[string]bool)
	annEntries, err := os.ReadDir(filepath.Join(dir, "annotations"))
	if err == nil {
		for _, e := range annEntries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
				base := strings.TrimSuffix(e.Name(), ".json")
				annotated[base] = true
			}
		}
	}

	var frames []Frame
	imgEntries, err := os.ReadDir(filepath.Join(dir, "images"))
	if err == nil {
		for _, e := range imgEntries {
			if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			frames = append(frames, Frame{
				Name:          e.Name(),
				HasAnnotation: annotated[base],
			})
		}
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Name < frames[j].Name })

	return &Patient{ID: id, Clinical: clinical, Frames: frames}, nil
}

// Patients returns the patient list in stable (sorted) order.
func (s *Store) Patients() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.order))
	for _, id := range s.order {
		p := s.patients[id]
		sum := Summary{ID: id, FrameCount: len(p.Frames)}
		for _, f := range p.Frames {
			if f.HasAnnotation {
				sum.Annotated++
			}
		}
		if p.Clinical != nil {
			sum.Name = p.Clinical.Name
			sum.Age = p.Clinical.Age
			sum.Sex = p.Clinical.Sex
		}
		out = append(out, sum)
	}
	return out
}

// Patient returns one patient's full index entry.
func (s *Store) Patient(id string) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// PatientDir returns the absolute directory of a known patient.
func (s *Store) PatientDir(id string) (string, error) {
	if _, err := s.Patient(id); err != nil {
		return "", err
	}
	return filepath.Join(s.root, id), nil
}

// FramePath resolves a frame name to its absolute path, rejecting names
// that escape the patient's images directory.
func (s *Store) FramePath(id, name string) (string, error) {
	p, err := s.Patient(id)
	if err != nil {
		return "", err
	}
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("frame %q: %w", name, ErrNotFound)
	}
	for _, f := range p.Frames {
		if f.Name == name {
			return filepath.Join(s.root, id, "images", name), nil
		}
	}
	return "", fmt.Errorf("frame %q: %w", name, ErrNotFound)
}

// Annotation loads the annotation document paired with a frame.
func (s *Store) Annotation(id, frameName string) (*annotation.Document, error) {
	p, err := s.Patient(id)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(frameName, filepath.Ext(frameName))
	for _, f := range p.Frames {
		if f.Name != frameName {
			continue
		}
		if !f.HasAnnotation {
			return nil, fmt.Errorf("annotation for %q: %w", frameName, ErrNotFound)
		}
		return annotation.LoadFile(filepath.Join(s.root, id, "annotations", base+".json"))
	}
	return nil, fmt.Errorf("frame %q: %w", frameName, ErrNotFound)
}

// Watch reindexes the store whenever the dataset changes, until ctx is
// canceled. Events are debounced so a batch copy triggers one rescan.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	s.watcher = watcher

	if err := watcher.Add(s.root); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch data root: %w", err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		reindex := func() {
			if err := s.Reindex(); err != nil {
				s.log.Error().Err(err).Msg("reindex after change failed")
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				s.log.Debug().Str("op", event.Op.String()).Str("path", event.Name).Msg("dataset change")
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(500*time.Millisecond, reindex)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn().Err(err).Msg("watcher error")
			}
		}
	}()

	return nil
}
