package contract

import (
	"encoding/json"
	"time"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TokenResponse is returned by register, login and refresh. ExpiresIn is the
// access token lifetime in seconds; clients fall back to the JWT exp claim
// when it is absent.
type TokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in,omitempty"`
	User         *UserDTO `json:"user,omitempty"`
}

type PhysicalDTO struct {
	BiologicalSex       *string    `json:"biological_sex,omitempty"`
	BiologicalSexSource string     `json:"biological_sex_source,omitempty"`
	HeightCm            *float64   `json:"height_cm,omitempty"`
	HeightSource        string     `json:"height_source,omitempty"`
	DateOfBirth         *string    `json:"date_of_birth,omitempty"`
	DateOfBirthSource   string     `json:"date_of_birth_source,omitempty"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

type ProfileDTO struct {
	ID                  string       `json:"id"`
	UserID              string       `json:"user_id"`
	Name                string       `json:"name"`
	Bio                 string       `json:"bio,omitempty"`
	PreferredUnitSystem string       `json:"preferred_unit_system"`
	LanguageCode        string       `json:"language_code,omitempty"`
	DateOfBirth         *string      `json:"date_of_birth,omitempty"`
	Physical            *PhysicalDTO `json:"physical,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// ProfileUpdateRequest is the body of PUT /users/me. The first PUT creates
// the profile.
type ProfileUpdateRequest struct {
	Name                string  `json:"name"`
	Bio                 string  `json:"bio,omitempty"`
	PreferredUnitSystem string  `json:"preferred_unit_system"`
	LanguageCode        string  `json:"language_code,omitempty"`
	DateOfBirth         *string `json:"date_of_birth,omitempty"`
}

// ClientID on create requests is the client's local record ID. The backend
// treats a repeated ClientID as the same record.
type ProgressRequest struct {
	ClientID string    `json:"client_id,omitempty"`
	Type     string    `json:"type"`
	Quantity float64   `json:"quantity"`
	Date     time.Time `json:"date"`
	Notes    string    `json:"notes,omitempty"`
}

type ProgressDTO struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id,omitempty"`
	Type      string    `json:"type"`
	Quantity  float64   `json:"quantity"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type MoodRequest struct {
	ClientID string    `json:"client_id,omitempty"`
	Score    int       `json:"score"`
	Emotions []string  `json:"emotions,omitempty"`
	Date     time.Time `json:"date"`
	Notes    string    `json:"notes,omitempty"`
}

type MoodDTO struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id,omitempty"`
	Score     int       `json:"score"`
	Emotions  []string  `json:"emotions,omitempty"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CreatedResponse struct {
	ID string `json:"id"`
}

type MealLogRequest struct {
	ClientID string    `json:"client_id,omitempty"`
	RawInput string    `json:"raw_input"`
	MealType string    `json:"meal_type"`
	LoggedAt time.Time `json:"logged_at"`
}

type MealItemDTO struct {
	Name     string  `json:"name"`
	Quantity string  `json:"quantity,omitempty"`
	Calories float64 `json:"calories"`
}

type MealLogDTO struct {
	ID            string        `json:"id"`
	ClientID      string        `json:"client_id,omitempty"`
	RawInput      string        `json:"raw_input"`
	MealType      string        `json:"meal_type"`
	LoggedAt      time.Time     `json:"logged_at"`
	Status        string        `json:"status"`
	Items         []MealItemDTO `json:"items,omitempty"`
	TotalCalories float64       `json:"total_calories"`
	Error         string        `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// MealLogAccepted is the 202 body of POST /meal-logs/natural.
type MealLogAccepted struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Push message types sent over the notification socket.
const (
	PushMealLogCompleted = "meal_log.completed"
	PushMealLogFailed    = "meal_log.failed"
)

type PushMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
