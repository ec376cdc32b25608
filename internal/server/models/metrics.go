package models

import "time"

// ProgressEntry is a metric measurement. ClientID is the submitting device's
// record ID; a repeated ClientID denotes the same entry.
type ProgressEntry struct {
	ID        string
	UserID    string
	ClientID  *string
	Type      string
	Quantity  float64
	Date      time.Time
	Notes     string
	CreatedAt time.Time
}

type MoodEntry struct {
	ID        string
	UserID    string
	ClientID  *string
	Score     int
	Emotions  []string
	Date      time.Time
	Notes     string
	CreatedAt time.Time
}

// ListFilter narrows entry listings. Zero fields are ignored; From is
// inclusive and To exclusive.
type ListFilter struct {
	Type  string
	From  time.Time
	To    time.Time
	Limit int
}
