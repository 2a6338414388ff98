package services

import (
	"errors"

	"github.com/99designs/keyring"
)

const (
	serviceName     = "codeanalyzer"
	backendTokenKey = "backend-token"
)

// KeyringService stores the analysis backend's bearer token in the OS
// keychain so it never lands in the database or a config file.
type KeyringService struct {
	open func() (keyring.Keyring, error)
}

func NewKeyringService() *KeyringService {
	return &KeyringService{
		open: func() (keyring.Keyring, error) {
			return keyring.Open(keyring.Config{ServiceName: serviceName})
		},
	}
}

func (s *KeyringService) StoreBackendToken(token string) error {
	if token == "" {
		return errors.New("token is empty")
	}

	ring, err := s.open()
	if err != nil {
		return err
	}
	return ring.Set(keyring.Item{
		Key:   backendTokenKey,
		Data:  []byte(token),
		Label: "Analysis backend token",
	})
}

// GetBackendToken returns the stored token, or "" when none is stored.
func (s *KeyringService) GetBackendToken() (string, error) {
	ring, err := s.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(backendTokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(item.Data), nil
}

func (s *KeyringService) DeleteBackendToken() error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Remove(backendTokenKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
