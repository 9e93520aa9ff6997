package grovekeep

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/chacha20poly1305"
)

// DataKeySize is the required length of Config.DataKey
const DataKeySize = chacha20poly1305.KeySize

// Sealer provides authenticated encryption for per-user data at rest.
// The associated data binds a ciphertext to its owner.
type Sealer interface {
	Seal(plaintext, associatedData []byte) ([]byte, error)
	Open(ciphertext, associatedData []byte) ([]byte, error)
}

// XChaChaSealer seals with XChaCha20-Poly1305; the random nonce is prepended
type XChaChaSealer struct {
	aead cipher.AEAD
}

func NewXChaChaSealer(key []byte) (*XChaChaSealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("invalid data key: %w", err)
	}
	return &XChaChaSealer{aead: aead}, nil
}

func (s *XChaChaSealer) Seal(plaintext, associatedData []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, associatedData), nil
}

func (s *XChaChaSealer) Open(ciphertext, associatedData []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(ciphertext) < n+s.aead.Overhead() {
		return nil, errors.New("sealed data too short")
	}
	return s.aead.Open(nil, ciphertext[:n], ciphertext[n:], associatedData)
}

// UserDataStore holds the opaque per-user application record (timer history,
// forest, badges, exam calendar). Every call passes through the AccessGate.
type UserDataStore struct {
	Backend Backend
	Gate    *AccessGate

	// Nil stores plaintext behind the gate
	Sealer Sealer
	Logger *slog.Logger
}

// Get returns the user's data record, or nil if none has been stored.
// Unreadable records degrade to nil.
func (s *UserDataStore) Get(ctx context.Context, token, userID string) (json.RawMessage, error) {
	if err := s.Gate.Require(ctx, token, userID); err != nil {
		return nil, err
	}

	data, err := s.Backend.Load(ctx, UserDataKey(userID))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.Logger.Warn("failed to load user data, treating as empty", "user_id", userID, "error", err)
		}
		return nil, nil
	}

	if s.Sealer != nil {
		if data, err = s.Sealer.Open(data, []byte(userID)); err != nil {
			s.Logger.Warn("failed to open user data, treating as empty", "user_id", userID, "error", err)
			return nil, nil
		}
	}
	if !json.Valid(data) {
		s.Logger.Warn("corrupt user data, treating as empty", "user_id", userID)
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// Put replaces the user's data record with a JSON document
func (s *UserDataStore) Put(ctx context.Context, token, userID string, doc json.RawMessage) error {
	if err := s.Gate.Require(ctx, token, userID); err != nil {
		return err
	}
	if !json.Valid(doc) {
		return NewAuthError(ErrCodeInvalidData, "User data must be a JSON document", "data")
	}

	data := []byte(doc)
	if s.Sealer != nil {
		var err error
		if data, err = s.Sealer.Seal(data, []byte(userID)); err != nil {
			return err
		}
	}
	if err := s.Backend.Save(ctx, UserDataKey(userID), data); err != nil {
		return fmt.Errorf("failed to save user data: %w", err)
	}
	return nil
}
