package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/dbx"
	"github.com/fitiq/fitiq/internal/server/config"
	"github.com/fitiq/fitiq/internal/server/models"
	"github.com/fitiq/fitiq/internal/server/repositories/meallogs"
	"github.com/fitiq/fitiq/internal/server/repositories/mood"
	"github.com/fitiq/fitiq/internal/server/repositories/physical"
	"github.com/fitiq/fitiq/internal/server/repositories/profiles"
	"github.com/fitiq/fitiq/internal/server/repositories/progress"
	"github.com/fitiq/fitiq/internal/server/repositories/refreshtokens"
	"github.com/fitiq/fitiq/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	cfg.MealWorkers = 2
	cfg.MealQueueSize = 4
	return cfg
}

type fakeUsersRepo struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	err     error
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	c := *u
	c.ID = fmt.Sprintf("user-%d", len(f.byEmail)+1)
	c.CreatedAt = time.Now()
	f.byEmail[c.Email] = &c
	return &c, nil
}

func (f *fakeUsersRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type fakeRefreshRepo struct {
	mu        sync.Mutex
	tokens    map[string]*models.RefreshToken
	findErr   error
	deleteErr error
	createErr error
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	_, ok := f.tokens[token]
	delete(f.tokens, token)
	return ok, nil
}

func (f *fakeRefreshRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, t := range f.tokens {
		if t.ExpiresAt.Before(before) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

type fakeProfilesRepo struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
}

func (f *fakeProfilesRepo) Get(_ context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeProfilesRepo) Upsert(_ context.Context, p *models.Profile) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *p
	if old, ok := f.profiles[p.UserID]; ok {
		c.ID, c.CreatedAt = old.ID, old.CreatedAt
	} else {
		c.ID, c.CreatedAt = "profile-"+p.UserID, p.UpdatedAt
	}
	f.profiles[p.UserID] = &c
	out := c
	return &out, nil
}

type fakePhysicalRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Physical
}

func (f *fakePhysicalRepo) Get(_ context.Context, userID string) (*models.Physical, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakePhysicalRepo) Upsert(_ context.Context, p *models.Physical) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *p
	f.rows[p.UserID] = &c
	return nil
}

type fakeProgressRepo struct {
	mu      sync.Mutex
	entries []*models.ProgressEntry
	filter  models.ListFilter
}

func (f *fakeProgressRepo) Create(_ context.Context, e *models.ProgressEntry) (*models.ProgressEntry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ClientID != nil {
		for _, x := range f.entries {
			if x.UserID == e.UserID && x.ClientID != nil && *x.ClientID == *e.ClientID {
				return x, false, nil
			}
		}
	}
	c := *e
	c.ID = fmt.Sprintf("p%d", len(f.entries)+1)
	f.entries = append(f.entries, &c)
	return &c, true, nil
}

func (f *fakeProgressRepo) FindByClientID(_ context.Context, userID, clientID string) (*models.ProgressEntry, error) {
	return nil, common.ErrorNotFound
}

func (f *fakeProgressRepo) List(_ context.Context, userID string, lf models.ListFilter) ([]*models.ProgressEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = lf
	var out []*models.ProgressEntry
	for _, e := range f.entries {
		if e.UserID == userID && (lf.Type == "" || e.Type == lf.Type) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeMoodRepo struct {
	mu      sync.Mutex
	entries []*models.MoodEntry
	filter  models.ListFilter
}

func (f *fakeMoodRepo) Create(_ context.Context, e *models.MoodEntry) (*models.MoodEntry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *e
	c.ID = fmt.Sprintf("m%d", len(f.entries)+1)
	f.entries = append(f.entries, &c)
	return &c, true, nil
}

func (f *fakeMoodRepo) FindByClientID(_ context.Context, userID, clientID string) (*models.MoodEntry, error) {
	return nil, common.ErrorNotFound
}

func (f *fakeMoodRepo) List(_ context.Context, userID string, lf models.ListFilter) ([]*models.MoodEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = lf
	return f.entries, nil
}

type fakeMealLogsRepo struct {
	mu   sync.Mutex
	logs map[string]*models.MealLog
	seq  int
}

func (f *fakeMealLogsRepo) Create(_ context.Context, m *models.MealLog) (*models.MealLog, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ClientID != nil {
		for _, x := range f.logs {
			if x.UserID == m.UserID && x.ClientID != nil && *x.ClientID == *m.ClientID {
				c := *x
				return &c, false, nil
			}
		}
	}
	f.seq++
	c := *m
	c.ID = fmt.Sprintf("ml%d", f.seq)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.logs[c.ID] = &c
	out := c
	return &out, true, nil
}

func (f *fakeMealLogsRepo) Get(_ context.Context, userID, id string) (*models.MealLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.logs[id]
	if !ok || m.UserID != userID {
		return nil, common.ErrorNotFound
	}
	c := *m
	return &c, nil
}

func (f *fakeMealLogsRepo) List(_ context.Context, userID string, limit int) ([]*models.MealLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.MealLog
	for _, m := range f.logs {
		if m.UserID == userID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeMealLogsRepo) ListProcessing(_ context.Context, limit int) ([]*models.MealLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.MealLog
	for _, m := range f.logs {
		if m.Status == models.MealLogProcessing {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMealLogsRepo) Complete(_ context.Context, id string, items []models.MealItem, total float64) (*models.MealLog, error) {
	return f.finish(id, func(m *models.MealLog) {
		m.Status, m.Items, m.TotalCalories = models.MealLogCompleted, items, total
	})
}

func (f *fakeMealLogsRepo) Fail(_ context.Context, id, reason string) (*models.MealLog, error) {
	return f.finish(id, func(m *models.MealLog) {
		m.Status, m.Error = models.MealLogFailed, reason
	})
}

func (f *fakeMealLogsRepo) finish(id string, fn func(*models.MealLog)) (*models.MealLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.logs[id]
	if !ok || m.Status != models.MealLogProcessing {
		return nil, common.ErrorNotFound
	}
	fn(m)
	m.UpdatedAt = time.Now()
	c := *m
	return &c, nil
}

type fakeRepoManager struct {
	users    *fakeUsersRepo
	refresh  *fakeRefreshRepo
	profiles *fakeProfilesRepo
	physical *fakePhysicalRepo
	progress *fakeProgressRepo
	mood     *fakeMoodRepo
	meals    *fakeMealLogsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:    &fakeUsersRepo{byEmail: map[string]*models.User{}},
		refresh:  &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}},
		profiles: &fakeProfilesRepo{profiles: map[string]*models.Profile{}},
		physical: &fakePhysicalRepo{rows: map[string]*models.Physical{}},
		progress: &fakeProgressRepo{},
		mood:     &fakeMoodRepo{},
		meals:    &fakeMealLogsRepo{logs: map[string]*models.MealLog{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error         { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refresh }
func (m *fakeRepoManager) Profiles(dbx.DBTX) profiles.Repository           { return m.profiles }
func (m *fakeRepoManager) Physical(dbx.DBTX) physical.Repository           { return m.physical }
func (m *fakeRepoManager) Progress(dbx.DBTX) progress.Repository           { return m.progress }
func (m *fakeRepoManager) Mood(dbx.DBTX) mood.Repository                   { return m.mood }
func (m *fakeRepoManager) MealLogs(dbx.DBTX) meallogs.Repository           { return m.meals }
