package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultLoginStateTTL = 10 * time.Minute
	loginStateIssuer     = "co2_monitor"
)

// LoginStates issues and verifies the OAuth "state" parameter as a short
// lived signed token, so the callback needs no server-side session.
type LoginStates struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewLoginStates(secret string, ttl time.Duration) (*LoginStates, error) {
	if secret == "" {
		return nil, errors.New("login state secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultLoginStateTTL
	}
	return &LoginStates{key: []byte(secret), ttl: ttl, now: time.Now}, nil
}

type loginClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

// Issue returns a fresh state value.
func (s *LoginStates) Issue() (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &loginClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    loginStateIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Nonce: uuid.NewString(),
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign login state: %w", err)
	}
	return signed, nil
}

// Verify accepts a state issued by Issue that has not expired.
func (s *LoginStates) Verify(state string) error {
	token, err := jwt.ParseWithClaims(state, &loginClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithIssuer(loginStateIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLoginState, err)
	}
	claims, ok := token.Claims.(*loginClaims)
	if !ok || !token.Valid || claims.Nonce == "" {
		return ErrInvalidLoginState
	}
	return nil
}
