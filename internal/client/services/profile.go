package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/fitiq/fitiq/internal/client/client"
	"github.com/fitiq/fitiq/internal/client/healthkit"
	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/client/repositories/repomanager"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/dbx"
	"github.com/fitiq/fitiq/internal/logging"
)

// ProfileService owns the cached profile of the current user.
//
// Local edits are validated, saved and queued for delivery in one
// transaction; a remote failure never rolls back a local edit. Physical
// attributes are merged by source confidence so a HealthKit value can only be
// replaced by another HealthKit value.
type ProfileService interface {
	// Get returns the cached profile or common.ErrorNotFound.
	Get(ctx context.Context) (*models.UserProfile, error)
	// Refresh merges the backend profile into the cache. A profile the
	// backend does not have yet leaves the cache untouched.
	Refresh(ctx context.Context) (*models.UserProfile, error)
	UpdateMetadata(ctx context.Context, patch models.MetadataPatch) (*models.UserProfile, error)
	// UpdatePhysical returns the names of patched attributes that were kept
	// because a more trusted source owns them.
	UpdatePhysical(ctx context.Context, patch models.PhysicalPatch, source models.DataSource) (*models.UserProfile, []string, error)
	SyncBiologicalSexFromHealthKit(ctx context.Context) (*models.UserProfile, error)
	SyncHeightFromHealthKit(ctx context.Context) (*models.UserProfile, error)
	// PerformInitialHealthKitSync imports every physical characteristic once
	// per profile and reports whether it ran.
	PerformInitialHealthKitSync(ctx context.Context) (bool, error)
	CleanupDuplicates(ctx context.Context) (int64, error)
}

type profileService struct {
	client client.Client
	db     *sql.DB
	repos  repomanager.RepositoryManager
	health healthkit.Store
	logger logging.Logger
}

func NewProfileService(c client.Client, db *sql.DB, repos repomanager.RepositoryManager, health healthkit.Store, logger logging.Logger) ProfileService {
	return &profileService{client: c, db: db, repos: repos, health: health, logger: logger}
}

func (s *profileService) user(ctx context.Context, db dbx.DBTX) (*User, error) {
	return currentUser(ctx, s.repos.Metadata(db))
}

func (s *profileService) Get(ctx context.Context) (*models.UserProfile, error) {
	u, err := s.user(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return s.repos.Profiles(s.db).Get(ctx, u.ID)
}

func (s *profileService) Refresh(ctx context.Context) (*models.UserProfile, error) {
	u, err := s.user(ctx, s.db)
	if err != nil {
		return nil, err
	}

	remote, err := s.client.GetProfile(ctx)
	if errors.Is(err, client.ErrNotFound) {
		s.logger.Info(ctx, "backend profile not initialized, keeping local state", "user_id", u.ID)
		return s.repos.Profiles(s.db).Get(ctx, u.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	var merged *models.UserProfile
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		local, err := loadProfile(ctx, s.repos, tx, u.ID)
		if err != nil {
			return err
		}
		merged = mergeRemote(local, remote, u)
		return s.repos.Profiles(tx).Upsert(ctx, merged)
	})
	if err != nil {
		return nil, fmt.Errorf("save merged profile: %w", err)
	}
	return merged, nil
}

// mergeRemote reconciles remote into local, which may be nil, keeping
// pending local edits.
func mergeRemote(local, remote *models.UserProfile, u *User) *models.UserProfile {
	var pending []string
	if local != nil {
		pending = local.PendingFields
	}
	merged := models.MergeProfile(local, remote, pending)
	merged.Metadata.UserID = u.ID
	if merged.Email == "" {
		merged.Email = u.Email
	}
	return merged
}

// loadProfile returns the cached profile or nil.
func loadProfile(ctx context.Context, repos repomanager.RepositoryManager, db dbx.DBTX, userID string) (*models.UserProfile, error) {
	p, err := repos.Profiles(db).Get(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return p, err
}

func (s *profileService) UpdateMetadata(ctx context.Context, patch models.MetadataPatch) (*models.UserProfile, error) {
	var out *models.UserProfile
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.user(ctx, tx)
		if err != nil {
			return err
		}
		p, err := loadProfile(ctx, s.repos, tx, u.ID)
		if err != nil {
			return err
		}
		at := now()
		if p == nil {
			p = &models.UserProfile{
				Metadata: models.UserProfileMetadata{
					UserID:              u.ID,
					PreferredUnitSystem: models.UnitSystemMetric,
					CreatedAt:           at,
				},
				Email: u.Email,
			}
		}

		next := *p
		next.PendingFields = slices.Clone(p.PendingFields)
		changed := next.Metadata.Apply(patch, at)
		if len(changed) == 0 {
			out = p
			return nil
		}
		if err := next.Metadata.Validate(); err != nil {
			return err
		}
		next.AddPending(changed...)
		next.UpdatedAt = at

		if err := s.repos.Profiles(tx).Upsert(ctx, &next); err != nil {
			return err
		}
		if err := enqueue(ctx, s.repos, tx, models.EventProfileMetadataUpdated, u.ID, next.Metadata); err != nil {
			return err
		}
		s.logger.Debug(ctx, "profile metadata updated", "fields", changed)
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *profileService) UpdatePhysical(ctx context.Context, patch models.PhysicalPatch, source models.DataSource) (*models.UserProfile, []string, error) {
	var (
		out      *models.UserProfile
		rejected []string
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.user(ctx, tx)
		if err != nil {
			return err
		}
		out, rejected, err = applyPhysical(ctx, s.repos, tx, u.ID, patch, source)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if len(rejected) > 0 {
		s.logger.Info(ctx, "physical attributes owned by a stronger source were kept",
			"source", string(source), "fields", rejected)
	}
	return out, rejected, nil
}

// applyPhysical merges patch into the cached profile inside tx and queues a
// physical update when anything changed.
func applyPhysical(ctx context.Context, repos repomanager.RepositoryManager, tx dbx.DBTX, userID string, patch models.PhysicalPatch, source models.DataSource) (*models.UserProfile, []string, error) {
	if !source.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown source %q", common.ErrValidation, source)
	}
	at := now()
	if err := patch.Profile(source, at).Validate(); err != nil {
		return nil, nil, err
	}

	p, err := loadProfile(ctx, repos, tx, userID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, common.ErrProfileNotInitialized
	}

	merged, rejected := models.ApplyPhysicalPatch(p.Physical, patch, source, at)
	if physicalEqual(p.Physical, merged) {
		return p, rejected, nil
	}

	next := *p
	next.Physical = merged
	next.UpdatedAt = at
	if err := repos.Profiles(tx).Upsert(ctx, &next); err != nil {
		return nil, nil, err
	}
	if err := enqueue(ctx, repos, tx, models.EventProfilePhysicalUpdated, userID, merged); err != nil {
		return nil, nil, err
	}
	return &next, rejected, nil
}

// physicalEqual compares attribute values and sources, ignoring UpdatedAt.
func physicalEqual(a, b *models.PhysicalProfile) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return a.IsEmpty() && b.IsEmpty()
	}
	return eqPtr(a.BiologicalSex, b.BiologicalSex) && a.BiologicalSexSource == b.BiologicalSexSource &&
		eqPtr(a.HeightCm, b.HeightCm) && a.HeightSource == b.HeightSource &&
		eqTimePtr(a.DateOfBirth, b.DateOfBirth) && a.DateOfBirthSource == b.DateOfBirthSource
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func enqueue(ctx context.Context, repos repomanager.RepositoryManager, tx dbx.DBTX, typ models.EventType, entityID string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return repos.Outbox(tx).Enqueue(ctx, &models.OutboxEvent{
		EventType:     typ,
		EntityID:      entityID,
		Payload:       b,
		NextAttemptAt: now(),
	})
}

func (s *profileService) SyncBiologicalSexFromHealthKit(ctx context.Context) (*models.UserProfile, error) {
	sex, err := s.health.BiologicalSex(ctx)
	if errors.Is(err, healthkit.ErrNoData) {
		return s.Get(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("read biological sex: %w", err)
	}
	p, _, err := s.UpdatePhysical(ctx, models.PhysicalPatch{BiologicalSex: &sex}, models.SourceHealthKit)
	return p, err
}

func (s *profileService) SyncHeightFromHealthKit(ctx context.Context) (*models.UserProfile, error) {
	h, err := s.health.Height(ctx)
	if errors.Is(err, healthkit.ErrNoData) {
		return s.Get(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("read height: %w", err)
	}
	p, _, err := s.UpdatePhysical(ctx, models.PhysicalPatch{HeightCm: &h}, models.SourceHealthKit)
	return p, err
}

func (s *profileService) PerformInitialHealthKitSync(ctx context.Context) (bool, error) {
	p, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	if p.HasPerformedInitialHealthKitSync {
		return false, nil
	}

	patch, err := healthkit.ReadPhysical(ctx, s.health)
	if err != nil {
		return false, fmt.Errorf("read health data: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		userID := p.Metadata.UserID
		if patch.BiologicalSex != nil || patch.HeightCm != nil || patch.DateOfBirth != nil {
			if _, _, err := applyPhysical(ctx, s.repos, tx, userID, patch, models.SourceHealthKit); err != nil {
				return err
			}
		}
		cur, err := s.repos.Profiles(tx).Get(ctx, userID)
		if err != nil {
			return err
		}
		cur.HasPerformedInitialHealthKitSync = true
		return s.repos.Profiles(tx).Upsert(ctx, cur)
	})
	if err != nil {
		return false, err
	}
	s.logger.Info(ctx, "initial health data import completed")
	return true, nil
}

func (s *profileService) CleanupDuplicates(ctx context.Context) (int64, error) {
	n, err := s.repos.Profiles(s.db).CleanupDuplicates(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info(ctx, "removed duplicate profiles", "count", n)
	}
	return n, nil
}
