package models

import (
	"strconv"
	"time"
)

const (
	minMoodScore = 1
	maxMoodScore = 10
	maxEmotions  = 5
)

var allowedEmotions = map[string]struct{}{
	"happy": {}, "calm": {}, "energetic": {}, "grateful": {},
	"anxious": {}, "stressed": {}, "sad": {}, "tired": {},
	"angry": {}, "content": {}, "motivated": {}, "frustrated": {},
}

// MoodEntry is a self-reported mood check-in.
type MoodEntry struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Date       time.Time  `json:"date"`
	Score      int        `json:"score"`
	Emotions   []string   `json:"emotions,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	SyncStatus SyncStatus `json:"sync_status"`
	BackendID  *string    `json:"backend_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (e *MoodEntry) Validate() error {
	if e.UserID == "" {
		return invalid("user_id", "is required")
	}
	if e.Score < minMoodScore || e.Score > maxMoodScore {
		return invalid("score", "must be between %d and %d", minMoodScore, maxMoodScore)
	}
	if len(e.Emotions) > maxEmotions {
		return invalid("emotions", "at most %d allowed", maxEmotions)
	}
	seen := make(map[string]struct{}, len(e.Emotions))
	for _, em := range e.Emotions {
		if _, ok := allowedEmotions[em]; !ok {
			return invalid("emotions", "unknown emotion %q", em)
		}
		if _, dup := seen[em]; dup {
			return invalid("emotions", "duplicate emotion %q", em)
		}
		seen[em] = struct{}{}
	}
	if e.Date.IsZero() {
		return invalid("date", "is required")
	}
	if e.Date.After(now().Add(maxClockSkew)) {
		return invalid("date", "must not be in the future")
	}
	return nil
}

// DedupKey groups mood entries by user, UTC day and score.
func (e *MoodEntry) DedupKey() DedupKey {
	return DedupKey{
		UserID:   e.UserID,
		Day:      dayKey(e.Date),
		Type:     "mood",
		Quantity: strconv.Itoa(e.Score),
	}
}
