package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/contract"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// Options tunes HTTPClient. Zero values select the defaults.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	// Transport is the underlying round tripper; http.DefaultTransport when nil.
	Transport http.RoundTripper
}

const (
	defaultTimeout = 15 * time.Second
	defaultRPS     = 10
	defaultBurst   = 5
)

// HTTPClient implements Client over the REST contract.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter

	mu        sync.RWMutex
	token     models.AuthToken
	listeners []func(models.AuthToken)

	refreshMu sync.Mutex
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, opts Options) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	next := opts.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
	}
	c.http = &http.Client{
		Timeout:   opts.Timeout,
		Transport: &authTransport{c: c, next: next},
	}
	return c
}

func (c *HTTPClient) SetToken(tok models.AuthToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
}

func (c *HTTPClient) Token() models.AuthToken {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) OnTokenRefresh(fn func(models.AuthToken)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// refreshAfter rotates the token pair unless another request already did so
// after stale was read.
func (c *HTTPClient) refreshAfter(ctx context.Context, stale models.AuthToken) (models.AuthToken, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if cur := c.Token(); cur.AccessToken != stale.AccessToken && cur.AccessToken != "" {
		return cur, nil
	}

	fresh, err := c.Refresh(ctx, stale.RefreshToken)
	if err != nil {
		return models.AuthToken{}, err
	}
	c.SetToken(*fresh)

	c.mu.RLock()
	listeners := append([]func(models.AuthToken){}, c.listeners...)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(*fresh)
	}
	return *fresh, nil
}

func (c *HTTPClient) Register(ctx context.Context, email, password, name string) (*Session, error) {
	var resp contract.TokenResponse
	req := contract.RegisterRequest{Email: email, Password: password, Name: name}
	if err := c.do(ctx, http.MethodPost, contract.PathRegister, req, &resp); err != nil {
		return nil, err
	}
	return c.startSession(resp, email), nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp contract.TokenResponse
	req := contract.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, contract.PathLogin, req, &resp); err != nil {
		return nil, err
	}
	return c.startSession(resp, email), nil
}

func (c *HTTPClient) startSession(resp contract.TokenResponse, email string) *Session {
	s := &Session{Token: tokenFromResponse(resp, time.Now()), Email: email}
	if resp.User != nil {
		s.UserID = resp.User.ID
		if resp.User.Email != "" {
			s.Email = resp.User.Email
		}
	}
	if s.UserID == "" {
		s.UserID = subjectFromJWT(resp.AccessToken)
	}
	c.SetToken(s.Token)
	return s
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*models.AuthToken, error) {
	var resp contract.TokenResponse
	if err := c.do(ctx, http.MethodPost, contract.PathRefresh, contract.RefreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, err
	}
	tok := tokenFromResponse(resp, time.Now())
	return &tok, nil
}

func (c *HTTPClient) Logout(ctx context.Context, refreshToken string) error {
	err := c.do(ctx, http.MethodPost, contract.PathLogout, contract.LogoutRequest{RefreshToken: refreshToken}, nil)
	c.SetToken(models.AuthToken{})
	return err
}

func (c *HTTPClient) GetProfile(ctx context.Context) (*models.UserProfile, error) {
	var dto contract.ProfileDTO
	if err := c.do(ctx, http.MethodGet, contract.PathProfile, nil, &dto); err != nil {
		return nil, err
	}
	return profileFromDTO(dto)
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, m models.UserProfileMetadata) (*models.UserProfile, error) {
	var dto contract.ProfileDTO
	if err := c.do(ctx, http.MethodPut, contract.PathProfile, profileRequest(m), &dto); err != nil {
		return nil, err
	}
	return profileFromDTO(dto)
}

// UpdatePhysical sends a PATCH and falls back to PUT when the server does not
// allow PATCH on the physical resource.
func (c *HTTPClient) UpdatePhysical(ctx context.Context, p models.PhysicalProfile) (*models.PhysicalProfile, error) {
	req := physicalToDTO(&p)
	var dto contract.PhysicalDTO

	err := c.do(ctx, http.MethodPatch, contract.PathPhysical, req, &dto)
	if errors.Is(err, ErrMethodNotAllowed) {
		err = c.do(ctx, http.MethodPut, contract.PathPhysical, req, &dto)
	}
	if err != nil {
		return nil, err
	}
	return physicalFromDTO(&dto, p.UpdatedAt)
}

func (c *HTTPClient) CreateProgress(ctx context.Context, e *models.ProgressEntry) (string, error) {
	req := contract.ProgressRequest{
		ClientID: e.ID,
		Type:     string(e.Type),
		Quantity: e.Quantity,
		Date:     e.Date,
		Notes:    e.Notes,
	}
	var resp contract.CreatedResponse
	if err := c.do(ctx, http.MethodPost, contract.PathProgress, req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *HTTPClient) CreateMood(ctx context.Context, e *models.MoodEntry) (string, error) {
	req := contract.MoodRequest{
		ClientID: e.ID,
		Score:    e.Score,
		Emotions: e.Emotions,
		Date:     e.Date,
		Notes:    e.Notes,
	}
	var resp contract.CreatedResponse
	if err := c.do(ctx, http.MethodPost, contract.PathMood, req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *HTTPClient) SubmitMealLog(ctx context.Context, m *models.MealLog) (string, models.MealLogStatus, error) {
	req := contract.MealLogRequest{
		ClientID: m.ID,
		RawInput: m.RawInput,
		MealType: string(m.MealType),
		LoggedAt: m.LoggedAt,
	}
	var resp contract.MealLogAccepted
	if err := c.do(ctx, http.MethodPost, contract.PathMealNatural, req, &resp); err != nil {
		return "", "", err
	}
	status := models.MealLogStatus(resp.Status)
	if status == "" {
		status = models.MealLogProcessing
	}
	return resp.ID, status, nil
}

func (c *HTTPClient) GetMealLog(ctx context.Context, backendID string) (*models.MealLog, error) {
	var dto contract.MealLogDTO
	if err := c.do(ctx, http.MethodGet, contract.MealLogPath(url.PathEscape(backendID)), nil, &dto); err != nil {
		return nil, err
	}
	return MealLogFromDTO(dto), nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, contract.PathHealth, nil, nil)
}

// do sends a JSON request and decodes the response into out, which may be nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return errorFromResponse(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := decodeData(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeData accepts both {"data": {...}} and a bare payload.
func decodeData(raw []byte, out any) error {
	if res := gjson.GetBytes(raw, "data"); res.Exists() && (res.IsObject() || res.IsArray()) {
		raw = []byte(res.Raw)
	}
	return json.Unmarshal(raw, out)
}

func errorFromResponse(status int, raw []byte) error {
	e := &APIError{Status: status, err: sentinelForStatus(status)}
	if e.err == nil {
		e.err = fmt.Errorf("unexpected status %d", status)
	}
	if gjson.ValidBytes(raw) {
		e.Code = gjson.GetBytes(raw, "error.code").String()
		e.Message = gjson.GetBytes(raw, "error.message").String()
		if e.Message == "" {
			e.Message = gjson.GetBytes(raw, "message").String()
		}
	}
	return e
}
