package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/contract"
	"github.com/fitiq/fitiq/internal/logging"
	"github.com/fitiq/fitiq/internal/server/models"
	"github.com/fitiq/fitiq/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	registerErr error
	lastEmail   string
}

func (f *fakeUsers) Authenticate(tok string) (string, error) {
	switch tok {
	case "good":
		return "u1", nil
	case "expired":
		return "", common.ErrTokenExpired
	}
	return "", common.ErrInvalidToken
}

func (f *fakeUsers) Register(_ context.Context, email, _ string) (*services.TokenPair, error) {
	f.lastEmail = email
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &services.TokenPair{
		AccessToken: "a", RefreshToken: "r", ExpiresIn: 15 * time.Minute,
		User: &models.User{ID: "u1", Email: email},
	}, nil
}

func (f *fakeUsers) Login(_ context.Context, email, password string) (*services.TokenPair, error) {
	if password != "secret123" {
		return nil, common.ErrorUnauthorized
	}
	return &services.TokenPair{AccessToken: "a", RefreshToken: "r", User: &models.User{ID: "u1", Email: email}}, nil
}

func (f *fakeUsers) RefreshToken(_ context.Context, tok string) (*services.TokenPair, error) {
	if tok == "stale" {
		return nil, common.ErrRefreshTokenExpired
	}
	return &services.TokenPair{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: time.Minute}, nil
}

func (f *fakeUsers) Logout(context.Context, string) error { return nil }

type fakeProfiles struct {
	mu       sync.Mutex
	profile  *models.Profile
	incoming domain.PhysicalProfile
}

func (f *fakeProfiles) Get(_ context.Context, userID string) (*models.Profile, *models.Physical, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profile == nil {
		return nil, nil, common.ErrProfileNotInitialized
	}
	return f.profile, nil, nil
}

func (f *fakeProfiles) Update(_ context.Context, userID string, u services.ProfileUpdate) (*models.Profile, *models.Physical, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = &models.Profile{ID: "p1", UserID: userID, Name: u.Name, PreferredUnitSystem: u.PreferredUnitSystem, DateOfBirth: u.DateOfBirth}
	return f.profile, nil, nil
}

func (f *fakeProfiles) UpdatePhysical(_ context.Context, userID string, in domain.PhysicalProfile) (*models.Physical, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profile == nil {
		return nil, common.ErrProfileNotInitialized
	}
	f.incoming = in
	return &models.Physical{UserID: userID, HeightCm: in.HeightCm, HeightSource: "manual"}, nil
}

type fakeProgress struct {
	seen   map[string]string
	filter models.ListFilter
}

func (f *fakeProgress) Create(_ context.Context, e *models.ProgressEntry) (*models.ProgressEntry, bool, error) {
	if e.Type == "" {
		return nil, false, common.ErrValidation
	}
	if e.ClientID != nil {
		if id, ok := f.seen[*e.ClientID]; ok {
			return &models.ProgressEntry{ID: id}, false, nil
		}
		f.seen[*e.ClientID] = "srv-" + *e.ClientID
		return &models.ProgressEntry{ID: "srv-" + *e.ClientID}, true, nil
	}
	return &models.ProgressEntry{ID: "srv"}, true, nil
}

func (f *fakeProgress) List(_ context.Context, userID string, lf models.ListFilter) ([]*models.ProgressEntry, error) {
	f.filter = lf
	return []*models.ProgressEntry{{ID: "p1", UserID: userID, Type: "weight", Quantity: 70}}, nil
}

type fakeMood struct{}

func (fakeMood) Create(_ context.Context, e *models.MoodEntry) (*models.MoodEntry, bool, error) {
	return &models.MoodEntry{ID: "m1"}, true, nil
}

func (fakeMood) List(context.Context, string, models.ListFilter) ([]*models.MoodEntry, error) {
	return nil, nil
}

type fakeMealLogs struct{}

func (fakeMealLogs) Submit(_ context.Context, m *models.MealLog) (*models.MealLog, error) {
	m.ID, m.Status = "ml1", models.MealLogProcessing
	return m, nil
}

func (fakeMealLogs) Get(_ context.Context, userID, id string) (*models.MealLog, error) {
	if id != "ml1" {
		return nil, common.ErrorNotFound
	}
	return &models.MealLog{ID: id, UserID: userID, Status: models.MealLogCompleted,
		Items: []models.MealItem{{Name: "egg", Calories: 78}}, TotalCalories: 78}, nil
}

func (fakeMealLogs) List(context.Context, string, int) ([]*models.MealLog, error) {
	return nil, nil
}

type fixture struct {
	srv      *httptest.Server
	users    *fakeUsers
	profiles *fakeProfiles
	progress *fakeProgress
	hub      *Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	metrics := NewMetrics()
	f := &fixture{
		users:    &fakeUsers{},
		profiles: &fakeProfiles{},
		progress: &fakeProgress{seen: map[string]string{}},
	}
	f.hub = NewHub(logging.NewNop(), metrics)
	h := &Handler{
		Users:    f.users,
		Profiles: f.profiles,
		Progress: f.progress,
		Mood:     fakeMood{},
		MealLogs: fakeMealLogs{},
		Hub:      f.hub,
		Metrics:  metrics,
		Logger:   logging.NewNop(),
	}
	f.srv = httptest.NewServer(h.Routes())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decodeData(t *testing.T, raw []byte, v any) {
	t.Helper()
	env := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(raw, &env))
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var env contract.ErrorEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env.Error.Code
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	status, raw := f.do(t, http.MethodGet, contract.PathHealth, "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"data":{"status":"ok"}}`, string(raw))
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	status, raw := f.do(t, http.MethodPost, contract.PathRegister, "", contract.RegisterRequest{Email: "a@example.com", Password: "secret123"})
	require.Equal(t, http.StatusCreated, status)
	var tok contract.TokenResponse
	decodeData(t, raw, &tok)
	assert.Equal(t, contract.TokenResponse{
		AccessToken: "a", RefreshToken: "r", ExpiresIn: 900,
		User: &contract.UserDTO{ID: "u1", Email: "a@example.com"},
	}, tok)

	status, raw = f.do(t, http.MethodPost, contract.PathLogin, "", contract.LoginRequest{Email: "a@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, contract.CodeUnauthorized, errorCode(t, raw))
}

func TestRegister_Conflict(t *testing.T) {
	f := newFixture(t)
	f.users.registerErr = common.ErrorAlreadyExists

	status, raw := f.do(t, http.MethodPost, contract.PathRegister, "", contract.RegisterRequest{Email: "a@example.com", Password: "secret123"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, contract.CodeConflict, errorCode(t, raw))
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)

	status, raw := f.do(t, http.MethodPost, contract.PathRefresh, "", contract.RefreshRequest{RefreshToken: "r"})
	require.Equal(t, http.StatusOK, status)
	var tok contract.TokenResponse
	decodeData(t, raw, &tok)
	assert.Equal(t, "r2", tok.RefreshToken)

	status, _ = f.do(t, http.MethodPost, contract.PathRefresh, "", contract.RefreshRequest{RefreshToken: "stale"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw = f.do(t, http.MethodPost, contract.PathRefresh, "", contract.RefreshRequest{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, contract.CodeValidation, errorCode(t, raw))
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	status, raw := f.do(t, http.MethodPost, contract.PathLogout, "", contract.LogoutRequest{RefreshToken: "r"})
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, raw)
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t)

	status, raw := f.do(t, http.MethodGet, contract.PathProfile, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, contract.CodeUnauthorized, errorCode(t, raw))

	status, raw = f.do(t, http.MethodGet, contract.PathProfile, "expired", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, contract.CodeTokenExpired, errorCode(t, raw))

	status, _ = f.do(t, http.MethodGet, contract.PathProfile, "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProfileLifecycle(t *testing.T) {
	f := newFixture(t)

	status, raw := f.do(t, http.MethodGet, contract.PathProfile, "good", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, contract.CodeProfileNotInitialized, errorCode(t, raw))

	height := 180.0
	status, raw = f.do(t, http.MethodPatch, contract.PathPhysical, "good", contract.PhysicalDTO{HeightCm: &height})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, contract.CodeProfileNotInitialized, errorCode(t, raw))

	dob := "1990-05-01"
	status, raw = f.do(t, http.MethodPut, contract.PathProfile, "good", contract.ProfileUpdateRequest{
		Name: "Alice", PreferredUnitSystem: "metric", DateOfBirth: &dob,
	})
	require.Equal(t, http.StatusOK, status)
	var p contract.ProfileDTO
	decodeData(t, raw, &p)
	assert.Equal(t, "Alice", p.Name)
	require.NotNil(t, p.DateOfBirth)
	assert.Equal(t, dob, *p.DateOfBirth)

	status, raw = f.do(t, http.MethodPatch, contract.PathPhysical, "good", contract.PhysicalDTO{HeightCm: &height, HeightSource: "bogus"})
	require.Equal(t, http.StatusOK, status)
	var ph contract.PhysicalDTO
	decodeData(t, raw, &ph)
	assert.Equal(t, 180.0, *ph.HeightCm)
	assert.Equal(t, domain.DataSource(""), f.profiles.incoming.HeightSource)
}

func TestProfile_BadDate(t *testing.T) {
	f := newFixture(t)
	dob := "01/05/1990"
	status, raw := f.do(t, http.MethodPut, contract.PathProfile, "good", contract.ProfileUpdateRequest{Name: "A", DateOfBirth: &dob})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, contract.CodeValidation, errorCode(t, raw))
}

func TestPhysical_OtherMethodsNotAllowed(t *testing.T) {
	f := newFixture(t)
	status, raw := f.do(t, http.MethodPut, contract.PathPhysical, "good", contract.PhysicalDTO{})
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, contract.CodeMethodNotAllowed, errorCode(t, raw))
}

func TestProgress_CreateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	req := contract.ProgressRequest{ClientID: "c1", Type: "weight", Quantity: 70, Date: time.Now()}

	status, raw := f.do(t, http.MethodPost, contract.PathProgress, "good", req)
	require.Equal(t, http.StatusCreated, status)
	var first contract.CreatedResponse
	decodeData(t, raw, &first)

	status, raw = f.do(t, http.MethodPost, contract.PathProgress, "good", req)
	require.Equal(t, http.StatusOK, status)
	var again contract.CreatedResponse
	decodeData(t, raw, &again)
	assert.Equal(t, first, again)
}

func TestProgress_MalformedBody(t *testing.T) {
	f := newFixture(t)
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+contract.PathProgress, strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+"good")
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProgress_ListFilter(t *testing.T) {
	f := newFixture(t)

	status, raw := f.do(t, http.MethodGet, contract.PathProgress+"?type=weight&from=2025-03-01&to=2025-03-31&limit=10", "good", nil)
	require.Equal(t, http.StatusOK, status)
	var list []contract.ProgressDTO
	decodeData(t, raw, &list)
	require.Len(t, list, 1)

	assert.Equal(t, models.ListFilter{
		Type:  "weight",
		From:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		To:    time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Limit: 10,
	}, f.progress.filter)

	status, _ = f.do(t, http.MethodGet, contract.PathProgress+"?from=yesterday", "good", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMood_EmptyListIsArray(t *testing.T) {
	f := newFixture(t)
	status, raw := f.do(t, http.MethodGet, contract.PathMood, "good", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"data":[]}`, string(raw))
}

func TestMealLogs(t *testing.T) {
	f := newFixture(t)

	status, raw := f.do(t, http.MethodPost, contract.PathMealNatural, "good", contract.MealLogRequest{RawInput: "egg", MealType: "breakfast"})
	require.Equal(t, http.StatusAccepted, status)
	var acc contract.MealLogAccepted
	decodeData(t, raw, &acc)
	assert.Equal(t, contract.MealLogAccepted{ID: "ml1", Status: "processing"}, acc)

	status, raw = f.do(t, http.MethodGet, contract.MealLogPath("ml1"), "good", nil)
	require.Equal(t, http.StatusOK, status)
	var dto contract.MealLogDTO
	decodeData(t, raw, &dto)
	assert.Equal(t, "completed", dto.Status)
	assert.Equal(t, []contract.MealItemDTO{{Name: "egg", Calories: 78}}, dto.Items)

	status, raw = f.do(t, http.MethodGet, contract.MealLogPath("missing"), "good", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, contract.CodeNotFound, errorCode(t, raw))
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	status, raw := f.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, contract.CodeNotFound, errorCode(t, raw))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, contract.PathHealth, "", nil)

	status, raw := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `fitiq_http_requests_total{method="GET",route="/api/v1/health",status="200"} 1`)
}
