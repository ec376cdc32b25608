package models

import "time"

const (
	MealLogProcessing = "processing"
	MealLogCompleted  = "completed"
	MealLogFailed     = "failed"
)

type MealItem struct {
	Name     string  `json:"name"`
	Quantity string  `json:"quantity,omitempty"`
	Calories float64 `json:"calories"`
}

type MealLog struct {
	ID            string
	UserID        string
	ClientID      *string
	RawInput      string
	MealType      string
	LoggedAt      time.Time
	Status        string
	Items         []MealItem
	TotalCalories float64
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
