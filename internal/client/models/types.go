// Package models defines the FitIQ client domain: the user profile aggregate,
// metric entries, meal logs and the outbox events that carry local mutations
// to the backend.
package models

import (
	"fmt"
	"time"

	"github.com/fitiq/fitiq/internal/common"
)

// now is replaced in tests.
var now = time.Now

// UnitSystem is the user's preferred measurement system.
type UnitSystem string

const (
	UnitSystemMetric   UnitSystem = "metric"
	UnitSystemImperial UnitSystem = "imperial"
)

func (u UnitSystem) Valid() bool {
	return u == UnitSystemMetric || u == UnitSystemImperial
}

// BiologicalSex as reported by the user or a health data store. The empty
// value means not set.
type BiologicalSex string

const (
	BiologicalSexFemale BiologicalSex = "female"
	BiologicalSexMale   BiologicalSex = "male"
	BiologicalSexOther  BiologicalSex = "other"
)

func (b BiologicalSex) Valid() bool {
	switch b {
	case BiologicalSexFemale, BiologicalSexMale, BiologicalSexOther:
		return true
	}
	return false
}

// DataSource identifies where a physical attribute came from.
type DataSource string

const (
	SourceHealthKit DataSource = "healthkit"
	SourceManual    DataSource = "manual"
	SourceBackend   DataSource = "backend"
)

// Rank orders sources by confidence. Unknown sources rank 0.
func (s DataSource) Rank() int {
	switch s {
	case SourceHealthKit:
		return 3
	case SourceManual:
		return 2
	case SourceBackend:
		return 1
	}
	return 0
}

func (s DataSource) Valid() bool { return s.Rank() > 0 }

// SyncStatus tracks delivery of a local record to the backend.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

func (s SyncStatus) Valid() bool {
	return s == SyncStatusPending || s == SyncStatusSynced || s == SyncStatusFailed
}

func invalid(field string, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", common.ErrValidation, field, fmt.Sprintf(format, args...))
}

const minAgeYears = 13

func validateDateOfBirth(dob *time.Time) error {
	if dob == nil {
		return nil
	}
	t := now()
	if !dob.Before(t) {
		return invalid("date_of_birth", "must be in the past")
	}
	if dob.After(t.AddDate(-minAgeYears, 0, 0)) {
		return invalid("date_of_birth", "user must be at least %d years old", minAgeYears)
	}
	return nil
}
