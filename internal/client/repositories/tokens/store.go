// Package tokens keeps the session's AuthToken in the client cache, encrypted
// with AES-GCM under a key derived from a device secret.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/client/repositories/metadata"
	"github.com/fitiq/fitiq/internal/common"
	"github.com/fitiq/fitiq/internal/cryptox"
)

var ErrNoToken = errors.New("no stored token")

const saltSize = 16

// Store is safe for concurrent use.
type Store struct {
	meta   metadata.Repository
	secret []byte

	mu  sync.Mutex
	key []byte
}

func NewStore(meta metadata.Repository, deviceSecret []byte) *Store {
	return &Store{meta: meta, secret: deviceSecret}
}

func (s *Store) Save(ctx context.Context, tok models.AuthToken) error {
	key, err := s.deriveKey(ctx)
	if err != nil {
		return err
	}
	sealed, err := cryptox.SealJSON(tok, key)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	return s.meta.Set(ctx, metadata.KeyAuthToken, sealed)
}

// Load returns ErrNoToken when nothing is stored.
func (s *Store) Load(ctx context.Context) (*models.AuthToken, error) {
	sealed, err := s.meta.Get(ctx, metadata.KeyAuthToken)
	if err != nil {
		return nil, err
	}
	if sealed == nil {
		return nil, ErrNoToken
	}
	key, err := s.deriveKey(ctx)
	if err != nil {
		return nil, err
	}
	var tok models.AuthToken
	if err := cryptox.OpenJSON(sealed, key, &tok); err != nil {
		return nil, fmt.Errorf("open token: %w", err)
	}
	return &tok, nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.meta.Delete(ctx, metadata.KeyAuthToken)
}

func (s *Store) deriveKey(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return s.key, nil
	}
	salt, err := s.meta.Get(ctx, metadata.KeyTokenSalt)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		salt = common.GenerateRandByteArray(saltSize)
		if err := s.meta.Set(ctx, metadata.KeyTokenSalt, salt); err != nil {
			return nil, err
		}
	}
	s.key = cryptox.DeriveKey(s.secret, salt)
	return s.key, nil
}
