package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/dbx"
	"github.com/fitiq/fitiq/internal/server/models"
	"github.com/fitiq/fitiq/internal/server/repositories/repomanager"
)

type ProfileUpdate struct {
	Name                string
	Bio                 string
	PreferredUnitSystem string
	LanguageCode        string
	DateOfBirth         *time.Time
}

type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager) *ProfileService {
	return &ProfileService{db: db, repomanager: m, now: time.Now}
}

// Get returns common.ErrProfileNotInitialized until the first Update. The
// physical profile is nil when nothing was stored.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, *models.Physical, error) {
	p, err := s.repomanager.Profiles(s.db).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrProfileNotInitialized
		}
		return nil, nil, err
	}
	ph, err := s.getPhysical(ctx, s.db, userID)
	if err != nil {
		return nil, nil, err
	}
	return p, ph, nil
}

// Update replaces the profile metadata, creating the profile on first use.
func (s *ProfileService) Update(ctx context.Context, userID string, u ProfileUpdate) (*models.Profile, *models.Physical, error) {
	meta := domain.UserProfileMetadata{
		UserID:              userID,
		Name:                u.Name,
		Bio:                 u.Bio,
		PreferredUnitSystem: domain.UnitSystem(u.PreferredUnitSystem),
		LanguageCode:        u.LanguageCode,
		DateOfBirth:         u.DateOfBirth,
	}
	if err := meta.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		saved *models.Profile
		ph    *models.Physical
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		saved, err = s.repomanager.Profiles(tx).Upsert(ctx, &models.Profile{
			UserID:              userID,
			Name:                meta.Name,
			Bio:                 meta.Bio,
			PreferredUnitSystem: string(meta.PreferredUnitSystem),
			LanguageCode:        meta.LanguageCode,
			DateOfBirth:         meta.DateOfBirth,
			UpdatedAt:           s.now().UTC(),
		})
		if err != nil {
			return err
		}
		ph, err = s.getPhysical(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return saved, ph, nil
}

// UpdatePhysical merges incoming into the stored physical profile attribute
// by attribute; an attribute owned by a stronger source is kept. Attributes
// set without a source count as manual entries.
func (s *ProfileService) UpdatePhysical(ctx context.Context, userID string, incoming domain.PhysicalProfile) (*models.Physical, error) {
	defaultSource(&incoming)
	if err := incoming.Validate(); err != nil {
		return nil, err
	}
	incoming.UpdatedAt = s.now().UTC()

	var out *models.Physical
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Profiles(tx).Get(ctx, userID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrProfileNotInitialized
			}
			return err
		}
		current, err := s.getPhysical(ctx, tx, userID)
		if err != nil {
			return err
		}
		merged := domain.MergePhysical(toDomainPhysical(current), &incoming)
		out = fromDomainPhysical(userID, merged)
		return s.repomanager.Physical(tx).Upsert(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ProfileService) getPhysical(ctx context.Context, db dbx.DBTX, userID string) (*models.Physical, error) {
	ph, err := s.repomanager.Physical(db).Get(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return ph, err
}

func defaultSource(p *domain.PhysicalProfile) {
	if p.BiologicalSex != nil && p.BiologicalSexSource == "" {
		p.BiologicalSexSource = domain.SourceManual
	}
	if p.HeightCm != nil && p.HeightSource == "" {
		p.HeightSource = domain.SourceManual
	}
	if p.DateOfBirth != nil && p.DateOfBirthSource == "" {
		p.DateOfBirthSource = domain.SourceManual
	}
}

func toDomainPhysical(p *models.Physical) *domain.PhysicalProfile {
	if p == nil {
		return nil
	}
	out := &domain.PhysicalProfile{
		BiologicalSexSource: domain.DataSource(p.BiologicalSexSource),
		HeightCm:            p.HeightCm,
		HeightSource:        domain.DataSource(p.HeightSource),
		DateOfBirth:         p.DateOfBirth,
		DateOfBirthSource:   domain.DataSource(p.DateOfBirthSource),
		UpdatedAt:           p.UpdatedAt,
	}
	if p.BiologicalSex != nil {
		sex := domain.BiologicalSex(*p.BiologicalSex)
		out.BiologicalSex = &sex
	}
	return out
}

func fromDomainPhysical(userID string, p *domain.PhysicalProfile) *models.Physical {
	out := &models.Physical{
		UserID:              userID,
		BiologicalSexSource: string(p.BiologicalSexSource),
		HeightCm:            p.HeightCm,
		HeightSource:        string(p.HeightSource),
		DateOfBirth:         p.DateOfBirth,
		DateOfBirthSource:   string(p.DateOfBirthSource),
		UpdatedAt:           p.UpdatedAt,
	}
	if p.BiologicalSex != nil {
		sex := string(*p.BiologicalSex)
		out.BiologicalSex = &sex
	}
	return out
}
