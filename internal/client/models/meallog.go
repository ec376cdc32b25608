package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

func (m MealType) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}

// MealLogStatus follows the backend's asynchronous processing of a
// natural-language meal description.
type MealLogStatus string

const (
	MealLogPending    MealLogStatus = "pending"
	MealLogProcessing MealLogStatus = "processing"
	MealLogCompleted  MealLogStatus = "completed"
	MealLogFailed     MealLogStatus = "failed"
)

// Terminal reports whether no further status change is expected.
func (s MealLogStatus) Terminal() bool {
	return s == MealLogCompleted || s == MealLogFailed
}

func (s MealLogStatus) Valid() bool {
	return s == MealLogPending || s == MealLogProcessing || s.Terminal()
}

const maxRawInputLength = 1000

// MealItem is one food the backend recognised in a meal description.
type MealItem struct {
	Name     string  `json:"name"`
	Quantity string  `json:"quantity,omitempty"`
	Calories float64 `json:"calories"`
}

type MealLog struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	RawInput      string        `json:"raw_input"`
	MealType      MealType      `json:"meal_type"`
	LoggedAt      time.Time     `json:"logged_at"`
	Status        MealLogStatus `json:"status"`
	BackendID     *string       `json:"backend_id,omitempty"`
	Items         []MealItem    `json:"items,omitempty"`
	TotalCalories float64       `json:"total_calories"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (m *MealLog) Validate() error {
	if m.UserID == "" {
		return invalid("user_id", "is required")
	}
	n := utf8.RuneCountInString(strings.TrimSpace(m.RawInput))
	if n < 1 || n > maxRawInputLength {
		return invalid("raw_input", "must be 1..%d characters", maxRawInputLength)
	}
	if !m.MealType.Valid() {
		return invalid("meal_type", "unknown value %q", m.MealType)
	}
	return nil
}
