package models

import "time"

// Profile is the user's metadata. It is created by the first PUT.
type Profile struct {
	ID                  string
	UserID              string
	Name                string
	Bio                 string
	PreferredUnitSystem string
	LanguageCode        string
	DateOfBirth         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Physical holds body attributes with the source each came from.
type Physical struct {
	UserID              string
	BiologicalSex       *string
	BiologicalSexSource string
	HeightCm            *float64
	HeightSource        string
	DateOfBirth         *time.Time
	DateOfBirthSource   string
	UpdatedAt           time.Time
}
