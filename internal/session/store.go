// Package session persists the server-issued conversation identifier so a
// restarted client continues the same conversation.
package session

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned by stores whose backend cannot be used
var ErrUnavailable = errors.New("session storage unavailable")

// Store is a small string key/value store
type Store interface {
	// Get returns the value for key and whether it was present
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Key returns the storage key for a widget token: {namespace}_conv_{token}
func Key(namespace, token string) string {
	return fmt.Sprintf("%s_conv_%s", namespace, token)
}

// UnavailableStore fails every operation, the way storage disabled by policy does
type UnavailableStore struct{}

func (UnavailableStore) Get(string) (string, bool, error) { return "", false, ErrUnavailable }
func (UnavailableStore) Set(string, string) error         { return ErrUnavailable }
func (UnavailableStore) Remove(string) error              { return ErrUnavailable }

// Open returns the store for driver: "sqlite" (at path), "memory" or "none".
// "none" yields a nil Store, which disables continuity.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "sqlite":
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return NewMemoryStore(), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown session storage driver %q", driver)
	}
}
