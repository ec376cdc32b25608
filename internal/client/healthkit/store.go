// Package healthkit adapts a device health data store. The CLI reads a JSON
// health export; MemoryStore backs tests and offline demos.
package healthkit

import (
	"context"
	"errors"
	"time"

	"github.com/fitiq/fitiq/internal/client/models"
)

// ErrNoData is returned when the store has no value for a characteristic or
// no sample of a type.
var ErrNoData = errors.New("no health data")

// Sample is one quantity measurement in canonical units.
type Sample struct {
	Type  models.MetricType
	Value float64
	Date  time.Time
}

// Store is the read side of a health data store.
type Store interface {
	BiologicalSex(ctx context.Context) (models.BiologicalSex, error)
	// Height returns the latest height sample in centimetres.
	Height(ctx context.Context) (float64, error)
	DateOfBirth(ctx context.Context) (time.Time, error)
	// Samples returns the samples of typ dated at or after since, oldest first.
	Samples(ctx context.Context, typ models.MetricType, since time.Time) ([]Sample, error)
}

// ReadPhysical collects every physical characteristic the store knows. Missing
// values are left nil; any other error aborts.
func ReadPhysical(ctx context.Context, s Store) (models.PhysicalPatch, error) {
	var p models.PhysicalPatch

	sex, err := s.BiologicalSex(ctx)
	switch {
	case err == nil:
		p.BiologicalSex = &sex
	case !errors.Is(err, ErrNoData):
		return p, err
	}

	h, err := s.Height(ctx)
	switch {
	case err == nil:
		p.HeightCm = &h
	case !errors.Is(err, ErrNoData):
		return p, err
	}

	dob, err := s.DateOfBirth(ctx)
	switch {
	case err == nil:
		p.DateOfBirth = &dob
	case !errors.Is(err, ErrNoData):
		return p, err
	}
	return p, nil
}

func latestSample(samples []Sample, typ models.MetricType) (Sample, bool) {
	var (
		best  Sample
		found bool
	)
	for _, s := range samples {
		if s.Type != typ {
			continue
		}
		if !found || s.Date.After(best.Date) {
			best, found = s, true
		}
	}
	return best, found
}

func filterSamples(samples []Sample, typ models.MetricType, since time.Time) []Sample {
	var out []Sample
	for _, s := range samples {
		if s.Type == typ && !s.Date.Before(since) {
			out = append(out, s)
		}
	}
	sortByDate(out)
	return out
}
