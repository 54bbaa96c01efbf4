package models

import "time"

// Credentials is the OAuth token pair with an absolute expiry instant.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the access token can still be used at now.
func (c Credentials) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt)
}

// CanRefresh reports whether a refresh token is available.
func (c Credentials) CanRefresh() bool {
	return c.RefreshToken != ""
}
