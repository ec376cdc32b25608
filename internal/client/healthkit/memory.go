package healthkit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fitiq/fitiq/internal/client/models"
)

// MemoryStore is a Store held in memory.
type MemoryStore struct {
	mu          sync.RWMutex
	sex         *models.BiologicalSex
	dateOfBirth *time.Time
	samples     []Sample
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) SetBiologicalSex(sex models.BiologicalSex) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sex = &sex
}

func (m *MemoryStore) SetDateOfBirth(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dateOfBirth = &t
}

func (m *MemoryStore) AddSample(s Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, s)
}

func (m *MemoryStore) BiologicalSex(ctx context.Context) (models.BiologicalSex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sex == nil {
		return "", ErrNoData
	}
	return *m.sex, nil
}

func (m *MemoryStore) Height(ctx context.Context) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := latestSample(m.samples, models.MetricHeight)
	if !ok {
		return 0, ErrNoData
	}
	return s.Value, nil
}

func (m *MemoryStore) DateOfBirth(ctx context.Context) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dateOfBirth == nil {
		return time.Time{}, ErrNoData
	}
	return *m.dateOfBirth, nil
}

func (m *MemoryStore) Samples(ctx context.Context, typ models.MetricType, since time.Time) ([]Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterSamples(m.samples, typ, since), nil
}

func sortByDate(s []Sample) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
}
