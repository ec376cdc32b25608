package models

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxNameLength = 100
	maxBioLength  = 500
)

var languageCodeRe = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)

// Metadata field names used for pending-mutation bookkeeping.
const (
	FieldName                = "name"
	FieldBio                 = "bio"
	FieldPreferredUnitSystem = "preferred_unit_system"
	FieldLanguageCode        = "language_code"
	FieldDateOfBirth         = "date_of_birth"
)

// UserProfileMetadata holds identity and preferences. The backend owns it;
// the client caches it.
type UserProfileMetadata struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"user_id"`
	Name                string     `json:"name"`
	Bio                 string     `json:"bio,omitempty"`
	PreferredUnitSystem UnitSystem `json:"preferred_unit_system"`
	LanguageCode        string     `json:"language_code,omitempty"`
	DateOfBirth         *time.Time `json:"date_of_birth,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (m *UserProfileMetadata) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(m.Name))
	if n < 1 || n > maxNameLength {
		return invalid("name", "must be 1..%d characters", maxNameLength)
	}
	if utf8.RuneCountInString(m.Bio) > maxBioLength {
		return invalid("bio", "must be at most %d characters", maxBioLength)
	}
	if !m.PreferredUnitSystem.Valid() {
		return invalid("preferred_unit_system", "unknown value %q", m.PreferredUnitSystem)
	}
	if m.LanguageCode != "" && !languageCodeRe.MatchString(m.LanguageCode) {
		return invalid("language_code", "malformed value %q", m.LanguageCode)
	}
	return validateDateOfBirth(m.DateOfBirth)
}

// MetadataPatch is a partial update; nil fields are left untouched.
type MetadataPatch struct {
	Name                *string
	Bio                 *string
	PreferredUnitSystem *UnitSystem
	LanguageCode        *string
	DateOfBirth         *time.Time
}

// Apply writes the patch into m and returns the names of fields that changed.
// UpdatedAt is bumped to at only when something changed.
func (m *UserProfileMetadata) Apply(p MetadataPatch, at time.Time) []string {
	var changed []string
	if p.Name != nil && strings.TrimSpace(*p.Name) != m.Name {
		m.Name = strings.TrimSpace(*p.Name)
		changed = append(changed, FieldName)
	}
	if p.Bio != nil && *p.Bio != m.Bio {
		m.Bio = *p.Bio
		changed = append(changed, FieldBio)
	}
	if p.PreferredUnitSystem != nil && *p.PreferredUnitSystem != m.PreferredUnitSystem {
		m.PreferredUnitSystem = *p.PreferredUnitSystem
		changed = append(changed, FieldPreferredUnitSystem)
	}
	if p.LanguageCode != nil && *p.LanguageCode != m.LanguageCode {
		m.LanguageCode = *p.LanguageCode
		changed = append(changed, FieldLanguageCode)
	}
	if p.DateOfBirth != nil && (m.DateOfBirth == nil || !m.DateOfBirth.Equal(*p.DateOfBirth)) {
		dob := *p.DateOfBirth
		m.DateOfBirth = &dob
		changed = append(changed, FieldDateOfBirth)
	}
	if len(changed) > 0 {
		m.UpdatedAt = at
	}
	return changed
}

const (
	minHeightCm = 50
	maxHeightCm = 300
)

// PhysicalProfile holds body attributes, each tagged with the source that
// produced it.
type PhysicalProfile struct {
	BiologicalSex       *BiologicalSex `json:"biological_sex,omitempty"`
	BiologicalSexSource DataSource     `json:"biological_sex_source,omitempty"`
	HeightCm            *float64       `json:"height_cm,omitempty"`
	HeightSource        DataSource     `json:"height_source,omitempty"`
	DateOfBirth         *time.Time     `json:"date_of_birth,omitempty"`
	DateOfBirthSource   DataSource     `json:"date_of_birth_source,omitempty"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

func (p *PhysicalProfile) Validate() error {
	if p.HeightCm != nil && (*p.HeightCm < minHeightCm || *p.HeightCm > maxHeightCm) {
		return invalid("height_cm", "must be between %d and %d", minHeightCm, maxHeightCm)
	}
	if p.BiologicalSex != nil && !p.BiologicalSex.Valid() {
		return invalid("biological_sex", "unknown value %q", *p.BiologicalSex)
	}
	return validateDateOfBirth(p.DateOfBirth)
}

// IsEmpty reports whether no attribute is set.
func (p *PhysicalProfile) IsEmpty() bool {
	return p == nil || (p.BiologicalSex == nil && p.HeightCm == nil && p.DateOfBirth == nil)
}

// PhysicalPatch is a partial physical update from a single source.
type PhysicalPatch struct {
	BiologicalSex *BiologicalSex
	HeightCm      *float64
	DateOfBirth   *time.Time
}

// Profile builds the PhysicalProfile the patch describes, stamped with source
// and at.
func (p PhysicalPatch) Profile(source DataSource, at time.Time) *PhysicalProfile {
	out := &PhysicalProfile{UpdatedAt: at}
	if p.BiologicalSex != nil {
		v := *p.BiologicalSex
		out.BiologicalSex, out.BiologicalSexSource = &v, source
	}
	if p.HeightCm != nil {
		v := *p.HeightCm
		out.HeightCm, out.HeightSource = &v, source
	}
	if p.DateOfBirth != nil {
		v := *p.DateOfBirth
		out.DateOfBirth, out.DateOfBirthSource = &v, source
	}
	return out
}

// UserProfile is the local aggregate: backend-owned metadata, an optional
// physical profile and fields that only exist on this device.
type UserProfile struct {
	LocalID  string
	Metadata UserProfileMetadata
	Physical *PhysicalProfile

	Email                            string
	Username                         string
	HasPerformedInitialHealthKitSync bool
	LastSuccessfulSyncAt             *time.Time

	// PendingFields are metadata fields with local edits not yet
	// acknowledged by the backend.
	PendingFields []string
	UpdatedAt     time.Time
}

func (p *UserProfile) Validate() error {
	if p.Metadata.UserID == "" {
		return invalid("user_id", "is required")
	}
	if err := p.Metadata.Validate(); err != nil {
		return err
	}
	if p.Physical != nil {
		return p.Physical.Validate()
	}
	return nil
}

// HasPending reports whether field has an unacknowledged local edit.
func (p *UserProfile) HasPending(field string) bool {
	for _, f := range p.PendingFields {
		if f == field {
			return true
		}
	}
	return false
}

// AddPending records fields as pending, keeping the list free of duplicates.
func (p *UserProfile) AddPending(fields ...string) {
	for _, f := range fields {
		if !p.HasPending(f) {
			p.PendingFields = append(p.PendingFields, f)
		}
	}
}
