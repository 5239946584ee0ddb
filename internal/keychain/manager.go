// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain persists the SmartEco session token.
//
// A TokenStore holds exactly one value, the bearer token, under the key "userToken".
// The default store is the OS credential store (macOS Keychain, Windows Credential
// Manager, Secret Service, KWallet, pass or keyctl) with an encrypted-file keyring
// under the XDG state dir as fallback. A Redis store serves shared or headless
// setups, and an in-memory store serves tests.
package keychain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/99designs/keyring"

	"smarteco/cli/internal/apperr"
	"smarteco/cli/internal/config"
	"smarteco/cli/internal/xdg"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "smarteco"

// KeyToken is the key the session token is stored under.
const KeyToken = "userToken"

// PasswordEnv supplies the passphrase of the encrypted-file keyring non-interactively.
const PasswordEnv = "SMARTECO_KEYRING_PASSWORD"

// TokenStore is a durable single-token store.
// Load returns "" with a nil error when no token is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

var errNotFound = errors.New("key not found")

// keychainBackend is implemented by native backends that bypass the keyring library.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// Manager is a TokenStore over a keyring.Keyring or a native backend.
// It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	ring    keyring.Keyring
	backend keychainBackend
	name    string
}

// NewManager wraps an already opened keyring.
func NewManager(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring, name: "keyring"}
}

// NewMemory returns a Manager over an in-memory keyring.
func NewMemory() *Manager {
	return &Manager{ring: keyring.NewArrayKeyring(nil), name: "memory"}
}

// OpenKeyring opens the OS credential store. When fileOnly is set, or no OS
// backend is usable, the encrypted-file keyring is used instead.
func OpenKeyring(fileOnly bool, log *slog.Logger) (*Manager, error) {
	if !fileOnly && runtime.GOOS == "darwin" {
		if b, err := newSecurityBackend(log); err == nil {
			return &Manager{backend: b, name: "macos-security"}, nil
		}
		log.Debug("security command unavailable, falling back to keyring library")
	}

	dir, err := xdg.StateDir()
	if err != nil {
		return nil, err
	}

	cfg := keyring.Config{
		ServiceName:              ServiceName,
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
		LibSecretCollectionName:  ServiceName,
		KWalletAppID:             ServiceName,
		KWalletFolder:            ServiceName,
		KeychainTrustApplication: true,
		FileDir:                  dir,
		FilePasswordFunc:         filePassword,
	}
	if fileOnly {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	} else {
		cfg.AllowedBackends = osBackends()
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	name := "keyring"
	if fileOnly {
		name = "file"
	}
	return &Manager{ring: ring, name: name}, nil
}

// osBackends lists the native backends for this OS, with the file keyring last.
func osBackends() []keyring.BackendType {
	var bs []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		bs = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		bs = []keyring.BackendType{keyring.WinCredBackend}
	default:
		bs = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
			keyring.KeyCtlBackend,
		}
	}
	return append(bs, keyring.FileBackend)
}

func filePassword(prompt string) (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}
	return keyring.TerminalPrompt(prompt)
}

// Name reports the backend in use, for `smarteco status`.
func (m *Manager) Name() string { return m.name }

// Load retrieves the token. A missing entry is not an error.
func (m *Manager) Load(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		token, err := m.backend.Get(KeyToken)
		if errors.Is(err, errNotFound) {
			return "", nil
		}
		if err != nil {
			return "", apperr.Wrap(apperr.KindStorage, "Unable to read the saved session", err)
		}
		return token, nil
	}

	it, err := m.ring.Get(KeyToken)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindStorage, "Unable to read the saved session", err)
	}
	return string(it.Data), nil
}

// Save stores the token, replacing any previous one.
func (m *Manager) Save(_ context.Context, token string) error {
	if token == "" {
		return apperr.New(apperr.KindInvalid, "refusing to store an empty token")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.backend != nil {
		err = m.backend.Set(KeyToken, token)
	} else {
		err = m.ring.Set(keyring.Item{
			Key:         KeyToken,
			Data:        []byte(token),
			Label:       "SmartEco session",
			Description: "SmartEco API bearer token",
		})
	}
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, "Unable to save the session", err)
	}
	return nil
}

// Delete removes the token. Deleting an absent token succeeds.
func (m *Manager) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.backend != nil {
		err = m.backend.Delete(KeyToken)
	} else {
		err = m.ring.Remove(KeyToken)
		if errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, os.ErrNotExist) {
			err = nil
		}
	}
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, "Unable to clear the saved session", err)
	}
	return nil
}

// Open builds the TokenStore selected by cfg.TokenStore.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (TokenStore, error) {
	switch cfg.TokenStore {
	case config.StoreMemory:
		return NewMemory(), nil
	case config.StoreRedis:
		return OpenRedis(ctx, cfg.RedisURL, log)
	case config.StoreFile:
		return OpenKeyring(true, log)
	default:
		return OpenKeyring(false, log)
	}
}
