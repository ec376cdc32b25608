package httpapi

import (
	"fmt"
	"time"

	domain "github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/contract"
	"github.com/fitiq/fitiq/internal/server/models"
	"github.com/fitiq/fitiq/internal/server/services"
)

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(contract.DateLayout)
	return &s
}

func parseDate(s *string, field string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(contract.DateLayout, *s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be formatted as %s", common.ErrValidation, field, contract.DateLayout)
	}
	return &t, nil
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clientID(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func tokenResponse(p *services.TokenPair) contract.TokenResponse {
	resp := contract.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    int64(p.ExpiresIn / time.Second),
	}
	if p.User != nil {
		resp.User = &contract.UserDTO{ID: p.User.ID, Email: p.User.Email}
	}
	return resp
}

func profileDTO(p *models.Profile, ph *models.Physical) contract.ProfileDTO {
	dto := contract.ProfileDTO{
		ID:                  p.ID,
		UserID:              p.UserID,
		Name:                p.Name,
		Bio:                 p.Bio,
		PreferredUnitSystem: p.PreferredUnitSystem,
		LanguageCode:        p.LanguageCode,
		DateOfBirth:         formatDate(p.DateOfBirth),
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if ph != nil {
		pd := physicalDTO(ph)
		dto.Physical = &pd
	}
	return dto
}

func physicalDTO(p *models.Physical) contract.PhysicalDTO {
	updated := p.UpdatedAt
	return contract.PhysicalDTO{
		BiologicalSex:       p.BiologicalSex,
		BiologicalSexSource: p.BiologicalSexSource,
		HeightCm:            p.HeightCm,
		HeightSource:        p.HeightSource,
		DateOfBirth:         formatDate(p.DateOfBirth),
		DateOfBirthSource:   p.DateOfBirthSource,
		UpdatedAt:           &updated,
	}
}

// physicalFromDTO keeps the sources the client sent; unknown sources are
// dropped so the service treats the value as a manual entry.
func physicalFromDTO(dto contract.PhysicalDTO) (domain.PhysicalProfile, error) {
	dob, err := parseDate(dto.DateOfBirth, "date_of_birth")
	if err != nil {
		return domain.PhysicalProfile{}, err
	}
	p := domain.PhysicalProfile{HeightCm: dto.HeightCm, DateOfBirth: dob}
	if dto.BiologicalSex != nil && *dto.BiologicalSex != "" {
		sex := domain.BiologicalSex(*dto.BiologicalSex)
		p.BiologicalSex = &sex
		p.BiologicalSexSource = knownSource(dto.BiologicalSexSource)
	}
	if p.HeightCm != nil {
		p.HeightSource = knownSource(dto.HeightSource)
	}
	if p.DateOfBirth != nil {
		p.DateOfBirthSource = knownSource(dto.DateOfBirthSource)
	}
	return p, nil
}

func knownSource(s string) domain.DataSource {
	if src := domain.DataSource(s); src.Valid() {
		return src
	}
	return ""
}

func progressDTO(e *models.ProgressEntry) contract.ProgressDTO {
	return contract.ProgressDTO{
		ID:        e.ID,
		ClientID:  optional(e.ClientID),
		Type:      e.Type,
		Quantity:  e.Quantity,
		Date:      e.Date,
		Notes:     e.Notes,
		CreatedAt: e.CreatedAt,
	}
}

func moodDTO(e *models.MoodEntry) contract.MoodDTO {
	return contract.MoodDTO{
		ID:        e.ID,
		ClientID:  optional(e.ClientID),
		Score:     e.Score,
		Emotions:  e.Emotions,
		Date:      e.Date,
		Notes:     e.Notes,
		CreatedAt: e.CreatedAt,
	}
}

func mealLogDTO(m *models.MealLog) contract.MealLogDTO {
	dto := contract.MealLogDTO{
		ID:            m.ID,
		ClientID:      optional(m.ClientID),
		RawInput:      m.RawInput,
		MealType:      m.MealType,
		LoggedAt:      m.LoggedAt,
		Status:        m.Status,
		TotalCalories: m.TotalCalories,
		Error:         m.Error,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	for _, it := range m.Items {
		dto.Items = append(dto.Items, contract.MealItemDTO{Name: it.Name, Quantity: it.Quantity, Calories: it.Calories})
	}
	return dto
}
