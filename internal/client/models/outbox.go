package models

import "time"

// EventType names a kind of local mutation queued for delivery.
type EventType string

const (
	EventProfileMetadataUpdated EventType = "profile.metadata.updated"
	EventProfilePhysicalUpdated EventType = "profile.physical.updated"
	EventProgressLogged         EventType = "progress.logged"
	EventMoodLogged             EventType = "mood.logged"
	EventMealLogged             EventType = "meal.logged"
)

// OutboxEvent is a pending mutation. EntityID refers to the local record the
// event was raised for; Payload is the JSON body to deliver.
type OutboxEvent struct {
	ID            string
	EventType     EventType
	EntityID      string
	Payload       []byte
	Status        SyncStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OutboxStats counts events per status.
type OutboxStats struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
}
