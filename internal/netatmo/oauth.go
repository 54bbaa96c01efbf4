package netatmo

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// AuthorizeURL is the page the user visits to grant access.
func (c *Client) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (TokenGrant, error) {
	tok, err := c.oauth.Exchange(c.tokenContext(ctx), code,
		oauth2.SetAuthURLParam("scope", strings.Join(c.oauth.Scopes, " ")))
	if err != nil {
		return TokenGrant{}, c.tokenError(ctx, "exchange code", err)
	}
	return grantFrom(tok), nil
}

// RefreshToken trades a refresh token for a new pair. When the server does
// not rotate the refresh token, the old one is returned.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (TokenGrant, error) {
	if refreshToken == "" {
		return TokenGrant{}, &Error{Op: "refresh token", Kind: ErrRejected, Message: "empty refresh token"}
	}
	src := c.oauth.TokenSource(c.tokenContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return TokenGrant{}, c.tokenError(ctx, "refresh token", err)
	}
	return grantFrom(tok), nil
}

func (c *Client) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

func (c *Client) tokenError(ctx context.Context, op string, err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.Response != nil {
		code := rErr.Response.StatusCode
		e := &Error{Op: op, Status: code, Message: rErr.ErrorCode, Err: err}
		switch {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			e.Kind = ErrRejected
		case code == http.StatusBadRequest && isInvalidGrant(rErr):
			e.Kind = ErrRejected
		default:
			e.Kind = ErrServer
		}
		return e
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return &Error{Op: op, Kind: ErrNetwork, Err: err}
	}
	return &Error{Op: op, Kind: ErrServer, Err: err}
}

func isInvalidGrant(rErr *oauth2.RetrieveError) bool {
	return rErr.ErrorCode == "invalid_grant" || strings.Contains(string(rErr.Body), "invalid_grant")
}

func grantFrom(tok *oauth2.Token) TokenGrant {
	return TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn(tok),
	}
}

func expiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if !tok.Expiry.IsZero() {
		return int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}
	return 0
}
