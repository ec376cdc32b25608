package healthkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/contract"
	"github.com/fitiq/fitiq/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// exportFile is the on-disk layout of a health export:
//
//	{
//	  "characteristics": {"biological_sex": "female", "date_of_birth": "1990-04-05"},
//	  "samples": [{"type": "height", "value": 1.72, "unit": "m", "date": "2025-01-02T08:00:00Z"}]
//	}
type exportFile struct {
	Characteristics struct {
		BiologicalSex string `json:"biological_sex"`
		DateOfBirth   string `json:"date_of_birth"`
	} `json:"characteristics"`
	Samples []exportSample `json:"samples"`
}

type exportSample struct {
	Type  string    `json:"type"`
	Value float64   `json:"value"`
	Unit  string    `json:"unit"`
	Date  time.Time `json:"date"`
}

// ExportStore reads a JSON health export file. The file is re-read on every
// call so edits are picked up without a restart.
type ExportStore struct {
	path     string
	logger   logging.Logger
	debounce time.Duration
}

var _ Store = (*ExportStore)(nil)

func NewExportStore(path string, logger logging.Logger) *ExportStore {
	return &ExportStore{path: path, logger: logger, debounce: 250 * time.Millisecond}
}

func (s *ExportStore) Path() string { return s.path }

func (s *ExportStore) load() (*exportFile, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &exportFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read health export: %w", err)
	}
	var f exportFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse health export %s: %w", s.path, err)
	}
	return &f, nil
}

func (s *ExportStore) BiologicalSex(ctx context.Context) (models.BiologicalSex, error) {
	f, err := s.load()
	if err != nil {
		return "", err
	}
	sex := models.BiologicalSex(strings.ToLower(f.Characteristics.BiologicalSex))
	if !sex.Valid() {
		return "", ErrNoData
	}
	return sex, nil
}

func (s *ExportStore) Height(ctx context.Context) (float64, error) {
	samples, err := s.samples()
	if err != nil {
		return 0, err
	}
	latest, ok := latestSample(samples, models.MetricHeight)
	if !ok {
		return 0, ErrNoData
	}
	return latest.Value, nil
}

func (s *ExportStore) DateOfBirth(ctx context.Context) (time.Time, error) {
	f, err := s.load()
	if err != nil {
		return time.Time{}, err
	}
	if f.Characteristics.DateOfBirth == "" {
		return time.Time{}, ErrNoData
	}
	t, err := time.Parse(contract.DateLayout, f.Characteristics.DateOfBirth)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date_of_birth: %w", err)
	}
	return t, nil
}

func (s *ExportStore) Samples(ctx context.Context, typ models.MetricType, since time.Time) ([]Sample, error) {
	samples, err := s.samples()
	if err != nil {
		return nil, err
	}
	return filterSamples(samples, typ, since), nil
}

// samples converts every recognised export sample to canonical units and
// skips the rest.
func (s *ExportStore) samples() ([]Sample, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]Sample, 0, len(f.Samples))
	for _, es := range f.Samples {
		typ := models.MetricType(es.Type)
		if !typ.Valid() || es.Date.IsZero() {
			continue
		}
		v, ok := toCanonical(typ, es.Value, es.Unit)
		if !ok {
			continue
		}
		out = append(out, Sample{Type: typ, Value: v, Date: es.Date.UTC()})
	}
	return out, nil
}

func toCanonical(typ models.MetricType, v float64, unit string) (float64, bool) {
	unit = strings.ToLower(unit)
	if unit == "" || unit == typ.Unit() {
		return v, true
	}
	switch {
	case typ == models.MetricHeight && unit == "m":
		return v * 100, true
	case typ == models.MetricHeight && unit == "in":
		return v * 2.54, true
	case typ == models.MetricWeight && unit == "lb":
		return v * 0.45359237, true
	case typ == models.MetricWeight && unit == "g":
		return v / 1000, true
	}
	return 0, false
}

// Watch calls onChange after the export file is created, written or
// replaced, coalescing bursts of events. It blocks until ctx is cancelled.
func (s *ExportStore) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Editors replace files by rename, so watch the directory.
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	name := filepath.Clean(s.path)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.Debug(ctx, "health export changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn(ctx, "health export watcher error", "error", err)
		}
	}
}
