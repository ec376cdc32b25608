package models

import (
	"fmt"
	"math"
	"time"
)

// MetricType names a tracked body or activity metric.
type MetricType string

const (
	MetricWeight           MetricType = "weight"
	MetricHeight           MetricType = "height"
	MetricBodyFat          MetricType = "body_fat"
	MetricSteps            MetricType = "steps"
	MetricRestingHeartRate MetricType = "resting_heart_rate"
)

type valueRange struct{ min, max float64 }

var metricRanges = map[MetricType]valueRange{
	MetricWeight:           {20, 500},
	MetricHeight:           {minHeightCm, maxHeightCm},
	MetricBodyFat:          {1, 75},
	MetricSteps:            {0, 100000},
	MetricRestingHeartRate: {25, 250},
}

func (m MetricType) Valid() bool {
	_, ok := metricRanges[m]
	return ok
}

// Unit returns the canonical unit quantities of m are stored in.
func (m MetricType) Unit() string {
	switch m {
	case MetricWeight:
		return "kg"
	case MetricHeight:
		return "cm"
	case MetricBodyFat:
		return "%"
	case MetricSteps:
		return "steps"
	case MetricRestingHeartRate:
		return "bpm"
	}
	return ""
}

// maxClockSkew tolerates entries dated slightly ahead of the local clock.
const maxClockSkew = 24 * time.Hour

// ProgressEntry is one metric measurement.
type ProgressEntry struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Type       MetricType `json:"type"`
	Quantity   float64    `json:"quantity"`
	Date       time.Time  `json:"date"`
	Notes      string     `json:"notes,omitempty"`
	SyncStatus SyncStatus `json:"sync_status"`
	BackendID  *string    `json:"backend_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (e *ProgressEntry) Validate() error {
	if e.UserID == "" {
		return invalid("user_id", "is required")
	}
	r, ok := metricRanges[e.Type]
	if !ok {
		return invalid("type", "unknown metric %q", e.Type)
	}
	if math.IsNaN(e.Quantity) || e.Quantity < r.min || e.Quantity > r.max {
		return invalid("quantity", "must be between %g and %g for %s", r.min, r.max, e.Type)
	}
	if e.Date.IsZero() {
		return invalid("date", "is required")
	}
	if e.Date.After(now().Add(maxClockSkew)) {
		return invalid("date", "must not be in the future")
	}
	return nil
}

// DedupKey identifies entries that describe the same measurement.
type DedupKey struct {
	UserID   string
	Day      string
	Type     string
	Quantity string
}

// DedupKey groups entries by user, UTC day, metric type and quantity rounded
// to two decimals.
func (e *ProgressEntry) DedupKey() DedupKey {
	return DedupKey{
		UserID:   e.UserID,
		Day:      dayKey(e.Date),
		Type:     string(e.Type),
		Quantity: roundedQuantity(e.Quantity),
	}
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func roundedQuantity(q float64) string {
	return fmt.Sprintf("%.2f", math.Round(q*100)/100)
}

// String renders the key as stored in the dedup_key column.
func (k DedupKey) String() string {
	return k.UserID + "|" + k.Day + "|" + k.Type + "|" + k.Quantity
}
