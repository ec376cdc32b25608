package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/fitiq/fitiq/internal/client/client"
	"github.com/fitiq/fitiq/internal/client/healthkit"
	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/client/repositories/metadata"
	"github.com/fitiq/fitiq/internal/client/repositories/repomanager"
	"github.com/fitiq/fitiq/internal/client/repositories/tokens"
	"github.com/fitiq/fitiq/internal/logging"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const (
	testUserID = "user-1"
	testEmail  = "ada@example.com"
)

// testEnv is a cache backed by in-memory SQLite with a frozen clock.
type testEnv struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	client *fakeClient
	health *healthkit.MemoryStore
	logger logging.Logger
	clock  time.Time
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	repos := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, repos.RunMigrations(context.Background(), db))

	env := &testEnv{
		db:     db,
		repos:  repos,
		client: newFakeClient(),
		health: healthkit.NewMemoryStore(),
		logger: logging.NewNop(),
		clock:  time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	orig := now
	now = func() time.Time { return env.clock }
	t.Cleanup(func() { now = orig })
	return env
}

func (e *testEnv) advance(d time.Duration) { e.clock = e.clock.Add(d) }

// login marks testUserID as the current user without going through auth.
func (e *testEnv) login(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	meta := e.repos.Metadata(e.db)
	require.NoError(t, meta.SetString(ctx, metadata.KeyCurrentUserID, testUserID))
	require.NoError(t, meta.SetString(ctx, metadata.KeyCurrentEmail, testEmail))
}

func (e *testEnv) tokenStore() *tokens.Store {
	return tokens.NewStore(e.repos.Metadata(e.db), []byte("device-secret"))
}

func (e *testEnv) profiles() ProfileService {
	return NewProfileService(e.client, e.db, e.repos, e.health, e.logger)
}

func (e *testEnv) syncer(opts SyncOptions) SyncService {
	return NewSyncService(e.client, e.db, e.repos, e.profiles(), e.logger, opts)
}

// seedProfile creates a local profile named name for the current user.
func (e *testEnv) seedProfile(t *testing.T, name string) *models.UserProfile {
	t.Helper()
	p, err := e.profiles().UpdateMetadata(context.Background(), models.MetadataPatch{Name: &name})
	require.NoError(t, err)
	return p
}

func (e *testEnv) outbox(t *testing.T) []*models.OutboxEvent {
	t.Helper()
	rows, err := e.db.Query(`SELECT id FROM outbox ORDER BY created_at, id`)
	require.NoError(t, err)
	defer rows.Close()

	var out []*models.OutboxEvent
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ev, err := e.repos.Outbox(e.db).Get(context.Background(), id)
		require.NoError(t, err)
		out = append(out, ev)
	}
	require.NoError(t, rows.Err())
	return out
}

// fakeClient records calls and answers with the configured functions.
// Unset functions succeed with a plausible response.
type fakeClient struct {
	mu sync.Mutex

	register       func(email, password, name string) (*client.Session, error)
	login          func(email, password string) (*client.Session, error)
	logout         func(refreshToken string) error
	getProfile     func() (*models.UserProfile, error)
	updateProfile  func(m models.UserProfileMetadata) (*models.UserProfile, error)
	updatePhysical func(p models.PhysicalProfile) (*models.PhysicalProfile, error)
	createProgress func(e *models.ProgressEntry) (string, error)
	createMood     func(e *models.MoodEntry) (string, error)
	submitMealLog  func(m *models.MealLog) (string, models.MealLogStatus, error)
	getMealLog     func(backendID string) (*models.MealLog, error)
	ping           func() error

	calls     map[string]int
	token     models.AuthToken
	onRefresh []func(models.AuthToken)
}

var _ client.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{calls: map[string]int{}}
}

func (f *fakeClient) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeClient) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeClient) Register(_ context.Context, email, password, name string) (*client.Session, error) {
	f.record("Register")
	if f.register != nil {
		return f.register(email, password, name)
	}
	return &client.Session{UserID: testUserID, Email: email, Token: testToken()}, nil
}

func (f *fakeClient) Login(_ context.Context, email, password string) (*client.Session, error) {
	f.record("Login")
	if f.login != nil {
		return f.login(email, password)
	}
	return &client.Session{UserID: testUserID, Email: email, Token: testToken()}, nil
}

func (f *fakeClient) Refresh(context.Context, string) (*models.AuthToken, error) {
	f.record("Refresh")
	tok := testToken()
	return &tok, nil
}

func (f *fakeClient) Logout(_ context.Context, refreshToken string) error {
	f.record("Logout")
	if f.logout != nil {
		return f.logout(refreshToken)
	}
	return nil
}

func (f *fakeClient) GetProfile(context.Context) (*models.UserProfile, error) {
	f.record("GetProfile")
	if f.getProfile != nil {
		return f.getProfile()
	}
	return nil, client.ErrNotFound
}

func (f *fakeClient) UpdateProfile(_ context.Context, m models.UserProfileMetadata) (*models.UserProfile, error) {
	f.record("UpdateProfile")
	if f.updateProfile != nil {
		return f.updateProfile(m)
	}
	if m.ID == "" {
		m.ID = "remote-profile"
	}
	return &models.UserProfile{Metadata: m}, nil
}

func (f *fakeClient) UpdatePhysical(_ context.Context, p models.PhysicalProfile) (*models.PhysicalProfile, error) {
	f.record("UpdatePhysical")
	if f.updatePhysical != nil {
		return f.updatePhysical(p)
	}
	return &p, nil
}

func (f *fakeClient) CreateProgress(_ context.Context, e *models.ProgressEntry) (string, error) {
	f.record("CreateProgress")
	if f.createProgress != nil {
		return f.createProgress(e)
	}
	return "backend-" + e.ID, nil
}

func (f *fakeClient) CreateMood(_ context.Context, e *models.MoodEntry) (string, error) {
	f.record("CreateMood")
	if f.createMood != nil {
		return f.createMood(e)
	}
	return "backend-" + e.ID, nil
}

func (f *fakeClient) SubmitMealLog(_ context.Context, m *models.MealLog) (string, models.MealLogStatus, error) {
	f.record("SubmitMealLog")
	if f.submitMealLog != nil {
		return f.submitMealLog(m)
	}
	return "backend-" + m.ID, models.MealLogProcessing, nil
}

func (f *fakeClient) GetMealLog(_ context.Context, backendID string) (*models.MealLog, error) {
	f.record("GetMealLog")
	if f.getMealLog != nil {
		return f.getMealLog(backendID)
	}
	return nil, client.ErrNotFound
}

func (f *fakeClient) Ping(context.Context) error {
	f.record("Ping")
	if f.ping != nil {
		return f.ping()
	}
	return nil
}

func (f *fakeClient) SetToken(tok models.AuthToken) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = tok
}

func (f *fakeClient) Token() models.AuthToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeClient) OnTokenRefresh(fn func(models.AuthToken)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRefresh = append(f.onRefresh, fn)
}

// refreshed simulates a transparent token refresh inside the client.
func (f *fakeClient) refreshed(tok models.AuthToken) {
	f.SetToken(tok)
	f.mu.Lock()
	fns := append([]func(models.AuthToken){}, f.onRefresh...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(tok)
	}
}

func testToken() models.AuthToken {
	return models.AuthToken{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func ptr[T any](v T) *T { return &v }
