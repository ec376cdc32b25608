package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/contract"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, Options{Timeout: 2 * time.Second, RequestsPerSecond: 1000, Burst: 100})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, contract.ErrorEnvelope{Error: contract.ErrorBody{Code: code, Message: code}})
}

func TestGetProfile_DecodesWrappedAndBarePayloads(t *testing.T) {
	dob := "1990-04-05"
	h := 182.0
	profile := contract.ProfileDTO{
		ID: "p1", UserID: "u1", Name: "Alice", PreferredUnitSystem: "metric", DateOfBirth: &dob,
		Physical:  &contract.PhysicalDTO{HeightCm: &h},
		UpdatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	for name, body := range map[string]any{
		"wrapped": contract.DataEnvelope{Data: profile},
		"bare":    profile,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, contract.PathProfile, r.URL.Path)
				writeJSON(w, http.StatusOK, body)
			}))

			got, err := c.GetProfile(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "Alice", got.Metadata.Name)
			assert.Equal(t, "u1", got.Metadata.UserID)
			require.NotNil(t, got.Metadata.DateOfBirth)
			assert.Equal(t, 1990, got.Metadata.DateOfBirth.Year())
			require.NotNil(t, got.Physical)
			assert.Equal(t, models.SourceBackend, got.Physical.HeightSource)
		})
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrValidation},
		{http.StatusUnprocessableEntity, ErrValidation},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusMethodNotAllowed, ErrMethodNotAllowed},
		{http.StatusConflict, ErrConflict},
		{http.StatusTooManyRequests, ErrUnavailable},
		{http.StatusInternalServerError, ErrUnavailable},
		{http.StatusServiceUnavailable, ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tc.status, "some_code")
			}))
			_, err := c.CreateMood(context.Background(), &models.MoodEntry{Score: 5})
			require.ErrorIs(t, err, tc.want)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, "some_code", apiErr.Code)
		})
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, Options{Timeout: time.Second})
	err := c.Ping(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsTransient(err))
	assert.False(t, IsPermanent(err))
}

func TestExpiredAccessTokenIsRefreshedOnce(t *testing.T) {
	var refreshes, creates atomic.Int32

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case contract.PathRefresh:
			refreshes.Add(1)
			var req contract.RefreshRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "refresh-1", req.RefreshToken)
			assert.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, contract.DataEnvelope{Data: contract.TokenResponse{
				AccessToken: "access-2", RefreshToken: "refresh-2", ExpiresIn: 900,
			}})
		case contract.PathProgress:
			creates.Add(1)
			if r.Header.Get("Authorization") != "Bearer access-2" {
				writeError(w, http.StatusUnauthorized, contract.CodeTokenExpired)
				return
			}
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"client_id":"e1"`, "body is replayed on retry")
			writeJSON(w, http.StatusCreated, contract.DataEnvelope{Data: contract.CreatedResponse{ID: "srv-1"}})
		}
	}))
	c.SetToken(models.AuthToken{AccessToken: "access-1", RefreshToken: "refresh-1"})

	var seen []models.AuthToken
	c.OnTokenRefresh(func(tok models.AuthToken) { seen = append(seen, tok) })

	id, err := c.CreateProgress(context.Background(), &models.ProgressEntry{ID: "e1", Type: models.MetricWeight, Quantity: 70})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", id)
	assert.EqualValues(t, 1, refreshes.Load())
	assert.EqualValues(t, 2, creates.Load())
	assert.Equal(t, "access-2", c.Token().AccessToken)
	require.Len(t, seen, 1)
	assert.Equal(t, "refresh-2", seen[0].RefreshToken)
	assert.False(t, seen[0].ExpiresAt.IsZero())
}

func TestUnauthorizedWithoutExpiryCodeIsNotRefreshed(t *testing.T) {
	var refreshes atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == contract.PathRefresh {
			refreshes.Add(1)
		}
		writeError(w, http.StatusUnauthorized, contract.CodeUnauthorized)
	}))
	c.SetToken(models.AuthToken{AccessToken: "a", RefreshToken: "r"})

	_, err := c.GetProfile(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, refreshes.Load())
}

func TestFailedRefreshReturnsOriginalUnauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == contract.PathRefresh {
			writeError(w, http.StatusUnauthorized, contract.CodeUnauthorized)
			return
		}
		writeError(w, http.StatusUnauthorized, contract.CodeTokenExpired)
	}))
	c.SetToken(models.AuthToken{AccessToken: "a", RefreshToken: "r"})

	_, err := c.GetProfile(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, contract.CodeTokenExpired, apiErr.Code)
}

func TestUpdatePhysical_FallsBackToPutOn405(t *testing.T) {
	var methods []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodPatch {
			writeError(w, http.StatusMethodNotAllowed, contract.CodeMethodNotAllowed)
			return
		}
		var dto contract.PhysicalDTO
		require.NoError(t, json.NewDecoder(r.Body).Decode(&dto))
		writeJSON(w, http.StatusOK, dto)
	}))

	h := 171.0
	got, err := c.UpdatePhysical(context.Background(), models.PhysicalProfile{HeightCm: &h, HeightSource: models.SourceManual})
	require.NoError(t, err)
	assert.Equal(t, []string{http.MethodPatch, http.MethodPut}, methods)
	require.NotNil(t, got.HeightCm)
	assert.Equal(t, 171.0, *got.HeightCm)
	assert.Equal(t, models.SourceManual, got.HeightSource)
}

func TestLogin_DerivesExpiryAndSubjectFromJWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, contract.PathLogin, r.URL.Path)
		writeJSON(w, http.StatusOK, contract.TokenResponse{AccessToken: access, RefreshToken: "r"})
	}))

	s, err := c.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "user-42", s.UserID)
	assert.Equal(t, "a@example.com", s.Email)
	assert.True(t, exp.Equal(s.Token.ExpiresAt))
	assert.Equal(t, access, c.Token().AccessToken)
}

func TestSubmitAndGetMealLog(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == contract.PathMealNatural:
			writeJSON(w, http.StatusAccepted, contract.DataEnvelope{Data: contract.MealLogAccepted{ID: "m-1", Status: "processing"}})
		case r.Method == http.MethodGet && r.URL.Path == contract.MealLogPath("m-1"):
			writeJSON(w, http.StatusOK, contract.DataEnvelope{Data: contract.MealLogDTO{
				ID: "m-1", ClientID: "local-1", Status: "completed", MealType: "lunch",
				Items: []contract.MealItemDTO{{Name: "rice", Calories: 200}}, TotalCalories: 200,
			}})
		default:
			http.NotFound(w, r)
		}
	}))

	id, status, err := c.SubmitMealLog(context.Background(), &models.MealLog{ID: "local-1", RawInput: "rice", MealType: models.MealLunch})
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)
	assert.Equal(t, models.MealLogProcessing, status)

	m, err := c.GetMealLog(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "local-1", m.ID)
	assert.Equal(t, models.MealLogCompleted, m.Status)
	assert.Len(t, m.Items, 1)
}

func TestLogout_ClearsToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	c.SetToken(models.AuthToken{AccessToken: "a", RefreshToken: "r"})

	require.NoError(t, c.Logout(context.Background(), "r"))
	assert.True(t, c.Token().IsZero())
}
