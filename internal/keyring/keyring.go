// Package keyring keeps store credentials in the OS keyring.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/tenken/internal/config"
	"github.com/julianstephens/tenken/internal/constants"
)

var (
	// ErrNotFound is returned when no credentials are found in the keyring
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Account returns the keyring user holding the credentials of a store kind.
func Account(kind config.StoreKind) (string, error) {
	switch kind {
	case config.StorePostgres:
		return constants.DefaultKeyringUser, nil
	case config.StoreAzure:
		return constants.AzureKeyringUser, nil
	default:
		return "", fmt.Errorf("%s stores take no credentials", kind)
	}
}

// GetConnectionString retrieves the connection string of a store kind.
// Returns ErrNotFound if none is stored.
func GetConnectionString(kind config.StoreKind) (string, error) {
	account, err := Account(kind)
	if err != nil {
		return "", err
	}
	connStr, err := keyring.Get(constants.AppName, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return connStr, nil
}

// SetConnectionString stores the connection string of a store kind.
func SetConnectionString(kind config.StoreKind, connStr string) error {
	if connStr == "" {
		return errors.New("connection string cannot be empty")
	}
	account, err := Account(kind)
	if err != nil {
		return err
	}
	if err := keyring.Set(constants.AppName, account, connStr); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

// DeleteConnectionString removes the connection string of a store kind.
func DeleteConnectionString(kind config.StoreKind) error {
	account, err := Account(kind)
	if err != nil {
		return err
	}
	if err := keyring.Delete(constants.AppName, account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
