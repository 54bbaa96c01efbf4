package service

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyService guards the local API with a bcrypt-hashed key. An empty hash
// leaves the API open.
type APIKeyService struct {
	hash string
}

func NewAPIKeyService(hash string) *APIKeyService {
	return &APIKeyService{hash: strings.TrimSpace(hash)}
}

func (s *APIKeyService) Enabled() bool {
	return s.hash != ""
}

// CheckAPIKey compares key against the configured hash.
func (s *APIKeyService) CheckAPIKey(key string) error {
	if !s.Enabled() {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.hash), []byte(key)); err != nil {
		return ErrInvalidAPIKey
	}
	return nil
}

// HashAPIKey produces the value to put in api.key_hash.
func HashAPIKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("api key is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hash), nil
}
