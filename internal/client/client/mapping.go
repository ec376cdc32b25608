package client

import (
	"fmt"
	"time"

	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/contract"
	"github.com/golang-jwt/jwt/v5"
)

// tokenFromResponse derives the access token expiry from expires_in, falling
// back to the JWT exp claim.
func tokenFromResponse(resp contract.TokenResponse, now time.Time) models.AuthToken {
	tok := models.AuthToken{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if resp.ExpiresIn > 0 {
		tok.ExpiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
		return tok
	}
	tok.ExpiresAt = expiryFromJWT(resp.AccessToken)
	return tok
}

func unverifiedClaims(token string) *jwt.RegisteredClaims {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

// expiryFromJWT returns the zero time when the token carries no exp claim.
func expiryFromJWT(token string) time.Time {
	claims := unverifiedClaims(token)
	if claims == nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.UTC()
}

func subjectFromJWT(token string) string {
	claims := unverifiedClaims(token)
	if claims == nil {
		return ""
	}
	return claims.Subject
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(contract.DateLayout)
	return &s
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(contract.DateLayout, *s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, *s); err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", *s, err)
		}
	}
	return &t, nil
}

func profileRequest(m models.UserProfileMetadata) contract.ProfileUpdateRequest {
	return contract.ProfileUpdateRequest{
		Name:                m.Name,
		Bio:                 m.Bio,
		PreferredUnitSystem: string(m.PreferredUnitSystem),
		LanguageCode:        m.LanguageCode,
		DateOfBirth:         formatDate(m.DateOfBirth),
	}
}

func profileFromDTO(dto contract.ProfileDTO) (*models.UserProfile, error) {
	dob, err := parseDate(dto.DateOfBirth)
	if err != nil {
		return nil, err
	}
	p := &models.UserProfile{
		Metadata: models.UserProfileMetadata{
			ID:                  dto.ID,
			UserID:              dto.UserID,
			Name:                dto.Name,
			Bio:                 dto.Bio,
			PreferredUnitSystem: models.UnitSystem(dto.PreferredUnitSystem),
			LanguageCode:        dto.LanguageCode,
			DateOfBirth:         dob,
			CreatedAt:           dto.CreatedAt,
			UpdatedAt:           dto.UpdatedAt,
		},
		UpdatedAt: dto.UpdatedAt,
	}
	if p.Metadata.PreferredUnitSystem == "" {
		p.Metadata.PreferredUnitSystem = models.UnitSystemMetric
	}
	if dto.Physical != nil {
		if p.Physical, err = physicalFromDTO(dto.Physical, dto.UpdatedAt); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func physicalToDTO(p *models.PhysicalProfile) contract.PhysicalDTO {
	dto := contract.PhysicalDTO{
		BiologicalSexSource: string(p.BiologicalSexSource),
		HeightCm:            p.HeightCm,
		HeightSource:        string(p.HeightSource),
		DateOfBirth:         formatDate(p.DateOfBirth),
		DateOfBirthSource:   string(p.DateOfBirthSource),
	}
	if p.BiologicalSex != nil {
		s := string(*p.BiologicalSex)
		dto.BiologicalSex = &s
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		dto.UpdatedAt = &t
	}
	return dto
}

// physicalFromDTO tags attributes without a source as backend-owned.
func physicalFromDTO(dto *contract.PhysicalDTO, fallbackUpdated time.Time) (*models.PhysicalProfile, error) {
	dob, err := parseDate(dto.DateOfBirth)
	if err != nil {
		return nil, err
	}
	p := &models.PhysicalProfile{
		HeightCm:    dto.HeightCm,
		DateOfBirth: dob,
		UpdatedAt:   fallbackUpdated,
	}
	if dto.UpdatedAt != nil {
		p.UpdatedAt = *dto.UpdatedAt
	}
	if dto.BiologicalSex != nil && *dto.BiologicalSex != "" {
		sex := models.BiologicalSex(*dto.BiologicalSex)
		p.BiologicalSex = &sex
		p.BiologicalSexSource = sourceOrBackend(dto.BiologicalSexSource)
	}
	if p.HeightCm != nil {
		p.HeightSource = sourceOrBackend(dto.HeightSource)
	}
	if p.DateOfBirth != nil {
		p.DateOfBirthSource = sourceOrBackend(dto.DateOfBirthSource)
	}
	return p, nil
}

func sourceOrBackend(s string) models.DataSource {
	if src := models.DataSource(s); src.Valid() {
		return src
	}
	return models.SourceBackend
}

// MealLogFromDTO converts a backend meal log. BackendID is set from dto.ID and
// ID from the client ID echoed by the backend.
func MealLogFromDTO(dto contract.MealLogDTO) *models.MealLog {
	backendID := dto.ID
	m := &models.MealLog{
		ID:            dto.ClientID,
		RawInput:      dto.RawInput,
		MealType:      models.MealType(dto.MealType),
		LoggedAt:      dto.LoggedAt,
		Status:        models.MealLogStatus(dto.Status),
		BackendID:     &backendID,
		TotalCalories: dto.TotalCalories,
		CreatedAt:     dto.CreatedAt,
		UpdatedAt:     dto.UpdatedAt,
	}
	for _, it := range dto.Items {
		m.Items = append(m.Items, models.MealItem{Name: it.Name, Quantity: it.Quantity, Calories: it.Calories})
	}
	return m
}
