package services

import (
	"context"
	"testing"
	"time"

	"github.com/fitiq/fitiq/internal/client/client"
	"github.com/fitiq/fitiq/internal/client/healthkit"
	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_RequiresLogin(t *testing.T) {
	env := newEnv(t)
	_, err := env.profiles().Get(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestProfileService_UpdateMetadataSavesAndQueues(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.login(t)
	svc := env.profiles()

	p, err := svc.UpdateMetadata(ctx, models.MetadataPatch{
		Name:                ptr("Ada"),
		PreferredUnitSystem: ptr(models.UnitSystemImperial),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Metadata.Name)
	assert.Equal(t, testEmail, p.Email)
	assert.ElementsMatch(t, []string{models.FieldName, models.FieldPreferredUnitSystem}, p.PendingFields)
	assert.True(t, p.Metadata.UpdatedAt.Equal(env.clock))

	events := env.outbox(t)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventProfileMetadataUpdated, events[0].EventType)
	assert.Equal(t, testUserID, events[0].EntityID)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Metadata.Name)
	assert.Equal(t, models.UnitSystemImperial, got.Metadata.PreferredUnitSystem)
}

func TestProfileService_UpdateMetadataRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.login(t)
	svc := env.profiles()
	env.seedProfile(t, "Ada")

	_, err := svc.UpdateMetadata(ctx, models.MetadataPatch{LanguageCode: ptr("english")})
	require.ErrorIs(t, err, common.ErrValidation)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Metadata.LanguageCode)
	assert.Len(t, env.outbox(t), 1)
}

func TestProfileService_UpdateMetadataWithoutChangesIsNoop(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.login(t)
	seeded := env.seedProfile(t, "Ada")

	env.advance(time.Hour)
	p, err := env.profiles().UpdateMetadata(ctx, models.MetadataPatch{Name: ptr("Ada")})
	require.NoError(t, err)
	assert.True(t, p.Metadata.UpdatedAt.Equal(seeded.Metadata.UpdatedAt))
}

func TestProfileService_HealthKitValueNotOverwrittenByManual(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.login(t)
	env.seedProfile(t, "Ada")
	svc := env.profiles()

	p, rejected, err := svc.UpdatePhysical(ctx,
		models.PhysicalPatch{BiologicalSex: ptr(models.BiologicalSexFemale)}, models.SourceHealthKit)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t, models.SourceHealthKit, p.Physical.BiologicalSexSource)

	env.advance(time.Minute)
	p, rejected, err = svc.UpdatePhysical(ctx, models.PhysicalPatch{
		BiologicalSex: ptr(models.BiologicalSexMale),
		HeightCm:      ptr(171.0),
	}, models.SourceManual)
	require.NoError(t, err)
	assert.Equal(t, []string{"biological_sex"}, rejected)
	assert.Equal(t, models.BiologicalSexFemale, *p.Physical.BiologicalSex)
	assert.Equal(t, models.SourceHealthKit, p.Physical.BiologicalSexSource)
	assert.Equal(t, 171.0, *p.Physical.HeightCm)
	assert.Equal(t, models.SourceManual, p.Physical.HeightSource)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.BiologicalSexFemale, *got.Physical.BiologicalSex)
}

func TestProfileService_UpdatePhysicalWithoutProfile(t *testing.T) {
	env := newEnv(t)
	env.login(t)

	_, _, err := env.profiles().UpdatePhysical(context.Background(),
		models.PhysicalPatch{HeightCm: ptr(180.0)}, models.SourceManual)
	assert.ErrorIs(t, err, common.ErrProfileNotInitialized)
	assert.Empty(t, env.outbox(t))
}

func TestProfileService_UpdatePhysicalValidates(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.login(t)
	env.seedProfile(t, "Ada")

	_, _, err := env.profiles().UpdatePhysical(ctx, models.PhysicalPatch{HeightCm: ptr(20.0)}, models.SourceManual)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, _, err = env.profiles().UpdatePhysical(ctx, models.PhysicalPatch{HeightCm: ptr(180.0)}, models.DataSource("guess"))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestProfileService_RefreshKeepsPendingFields(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.login(t)
	env.seedProfile(t, "Ada")

	remoteAt := env.clock.Add(time.Hour)
	env.client.getProfile = func() (*models.UserProfile, error) {
		return &models.UserProfile{Metadata: models.UserProfileMetadata{
			ID:                  "remote-profile",
			UserID:              testUserID,
			Name:                "Server Name",
			Bio:                 "from the server",
			PreferredUnitSystem: models.UnitSystemMetric,
			UpdatedAt:           remoteAt,
		}}, nil
	}

	p, err := env.profiles().Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Metadata.Name)
	assert.Equal(t, "from the server", p.Metadata.Bio)
	assert.Equal(t, "remote-profile", p.Metadata.ID)
	assert.Equal(t, testEmail, p.Email)
}

func TestProfileService_RefreshWhenBackendHasNoProfile(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.login(t)
	env.seedProfile(t, "Ada")
	env.client.getProfile = func() (*models.UserProfile, error) { return nil, client.ErrNotFound }

	p, err := env.profiles().Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Metadata.Name)
}

func TestProfileService_SyncFromHealthKit(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.login(t)
	env.seedProfile(t, "Ada")
	svc := env.profiles()

	p, err := svc.SyncBiologicalSexFromHealthKit(ctx)
	require.NoError(t, err)
	assert.Nil(t, p.Physical, "no health data leaves the profile alone")

	env.health.SetBiologicalSex(models.BiologicalSexFemale)
	env.health.AddSample(healthkit.Sample{Type: models.MetricHeight, Value: 168, Date: env.clock.Add(-48 * time.Hour)})
	env.health.AddSample(healthkit.Sample{Type: models.MetricHeight, Value: 169, Date: env.clock.Add(-time.Hour)})

	_, err = svc.SyncBiologicalSexFromHealthKit(ctx)
	require.NoError(t, err)
	p, err = svc.SyncHeightFromHealthKit(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.BiologicalSexFemale, *p.Physical.BiologicalSex)
	assert.Equal(t, 169.0, *p.Physical.HeightCm)
	assert.Equal(t, models.SourceHealthKit, p.Physical.HeightSource)
}

func TestProfileService_PerformInitialHealthKitSyncRunsOnce(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.login(t)
	env.seedProfile(t, "Ada")
	svc := env.profiles()

	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	env.health.SetBiologicalSex(models.BiologicalSexMale)
	env.health.SetDateOfBirth(dob)
	env.health.AddSample(healthkit.Sample{Type: models.MetricHeight, Value: 182, Date: env.clock.Add(-time.Hour)})

	ran, err := svc.PerformInitialHealthKitSync(ctx)
	require.NoError(t, err)
	assert.True(t, ran)

	p, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, p.HasPerformedInitialHealthKitSync)
	require.NotNil(t, p.Physical)
	assert.Equal(t, models.BiologicalSexMale, *p.Physical.BiologicalSex)
	assert.Equal(t, 182.0, *p.Physical.HeightCm)
	assert.True(t, p.Physical.DateOfBirth.Equal(dob))

	ran, err = svc.PerformInitialHealthKitSync(ctx)
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestProfileService_CleanupDuplicates(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.login(t)
	env.seedProfile(t, "Ada")

	older := &models.UserProfile{
		Metadata:  models.UserProfileMetadata{UserID: testUserID, Name: "Stale", PreferredUnitSystem: models.UnitSystemMetric},
		UpdatedAt: env.clock.Add(-time.Hour),
	}
	require.NoError(t, env.repos.Profiles(env.db).Insert(ctx, older))

	n, err := env.profiles().CleanupDuplicates(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	p, err := env.profiles().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Metadata.Name)
}
