package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fitiq/fitiq/internal/client/client"
	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/client/repositories/metadata"
	"github.com/fitiq/fitiq/internal/client/repositories/repomanager"
	"github.com/fitiq/fitiq/internal/client/repositories/tokens"
	"github.com/fitiq/fitiq/internal/dbx"
	"github.com/fitiq/fitiq/internal/logging"
)

// AuthService manages the session of the user the local cache belongs to.
//
// Contract:
//   - Register and Login persist the token pair (encrypted) and the current
//     user in the cache.
//   - Logout revokes the refresh token remotely on a best-effort basis and
//     always clears the local session. Cached profile and metric data stay.
//   - Restore loads the stored tokens into the client.
//   - Tokens rotated by the client's transparent refresh are persisted.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (*User, error)
	CurrentUser(ctx context.Context) (*User, error)
}

type authService struct {
	client client.Client
	db     *sql.DB
	repos  repomanager.RepositoryManager
	tokens *tokens.Store
	logger logging.Logger
}

func NewAuthService(c client.Client, db *sql.DB, repos repomanager.RepositoryManager, store *tokens.Store, logger logging.Logger) AuthService {
	a := &authService{client: c, db: db, repos: repos, tokens: store, logger: logger}
	c.OnTokenRefresh(a.persistRefreshed)
	return a
}

func (a *authService) persistRefreshed(tok models.AuthToken) {
	ctx := context.Background()
	if err := a.tokens.Save(ctx, tok); err != nil {
		a.logger.Error(ctx, "failed to persist refreshed token", "error", err)
		return
	}
	a.logger.Debug(ctx, "access token refreshed")
}

func (a *authService) Register(ctx context.Context, email, password, name string) (*User, error) {
	s, err := a.client.Register(ctx, email, password, name)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return a.startSession(ctx, s)
}

func (a *authService) Login(ctx context.Context, email, password string) (*User, error) {
	s, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return a.startSession(ctx, s)
}

func (a *authService) startSession(ctx context.Context, s *client.Session) (*User, error) {
	if s.UserID == "" {
		return nil, fmt.Errorf("%w: server did not identify the user", client.ErrUnauthorized)
	}
	if err := a.tokens.Save(ctx, s.Token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		meta := a.repos.Metadata(tx)
		if err := meta.SetString(ctx, metadata.KeyCurrentUserID, s.UserID); err != nil {
			return err
		}
		return meta.SetString(ctx, metadata.KeyCurrentEmail, s.Email)
	})
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	a.logger.Info(ctx, "session started", "user_id", s.UserID)
	return &User{ID: s.UserID, Email: s.Email}, nil
}

func (a *authService) Logout(ctx context.Context) error {
	tok := a.client.Token()
	if tok.RefreshToken == "" {
		if stored, err := a.tokens.Load(ctx); err == nil {
			tok = *stored
		}
	}
	if tok.RefreshToken != "" {
		a.client.SetToken(tok)
		if err := a.client.Logout(ctx, tok.RefreshToken); err != nil {
			a.logger.Warn(ctx, "remote logout failed", "error", err)
		}
	}
	a.client.SetToken(models.AuthToken{})

	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		meta := a.repos.Metadata(tx)
		for _, key := range []string{metadata.KeyAuthToken, metadata.KeyCurrentUserID, metadata.KeyCurrentEmail} {
			if err := meta.Delete(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (a *authService) Restore(ctx context.Context) (*User, error) {
	u, err := a.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := a.tokens.Load(ctx)
	if errors.Is(err, tokens.ErrNoToken) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	a.client.SetToken(*tok)
	return u, nil
}

func (a *authService) CurrentUser(ctx context.Context) (*User, error) {
	return currentUser(ctx, a.repos.Metadata(a.db))
}
