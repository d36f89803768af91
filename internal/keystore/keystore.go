// Package keystore persists small secrets in the platform keyring.
package keystore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// Well-known keys shared with the session manager.
const (
	KeyBiometricEnabled = "fingerprint_login_enabled"
	KeyRefreshToken     = "user_refresh_token"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("keystore: not found")

// Store exposes opaque string key-value secrets.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Keyring stores secrets in the operating system keyring under a fixed
// service name.
type Keyring struct {
	Service string
}

const defaultService = "betza"

var _ Store = (*Keyring)(nil)

func (k *Keyring) service() string {
	if k == nil || k.Service == "" {
		return defaultService
	}
	return k.Service
}

// Get reads the value for key, returning ErrNotFound when absent.
func (k *Keyring) Get(key string) (string, error) {
	value, err := keyring.Get(k.service(), key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", key, err)
	}
	return value, nil
}

// Set writes the value for key, replacing any previous value.
func (k *Keyring) Set(key, value string) error {
	if err := keyring.Set(k.service(), key, value); err != nil {
		return fmt.Errorf("keyring set %s: %w", key, err)
	}
	return nil
}

// Delete removes the value for key. Deleting an absent key is not an error.
func (k *Keyring) Delete(key string) error {
	err := keyring.Delete(k.service(), key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete %s: %w", key, err)
	}
	return nil
}

// Memory is an in-process Store for tests and for platforms without a
// usable keyring.
type Memory struct {
	mu     sync.Mutex
	values map[string]string

	// FailDelete lists keys whose Delete calls should fail, for exercising
	// cleanup paths.
	FailDelete map[string]error
}

var _ Store = (*Memory)(nil)

func (m *Memory) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailDelete[key]; ok {
		return err
	}
	delete(m.values, key)
	return nil
}
