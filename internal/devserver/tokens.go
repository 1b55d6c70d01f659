// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds. API tokens authorize REST calls; stream tokens authorize the
// websocket.
const (
	kindAPI    = "api"
	kindStream = "stream"
)

var errInvalidToken = errors.New("invalid token")

type tokenClaims struct {
	Kind string `json:"knd"`
	jwt.RegisteredClaims
}

// tokenIssuer signs and checks HS256 tokens and remembers revoked ids.
type tokenIssuer struct {
	secret    []byte
	apiTTL    time.Duration
	streamTTL time.Duration
	now       func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func newTokenIssuer(secret []byte, apiTTL, streamTTL time.Duration, now func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		secret:    secret,
		apiTTL:    apiTTL,
		streamTTL: streamTTL,
		now:       now,
		revoked:   make(map[string]time.Time),
	}
}

func (t *tokenIssuer) issue(userID int64, kind string) (string, error) {
	ttl := t.apiTTL
	if kind == kindStream {
		ttl = t.streamTTL
	}
	now := t.now()
	claims := tokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// parse validates raw as a token of kind and returns its claims.
func (t *tokenIssuer) parse(raw, kind string) (*tokenClaims, int64, error) {
	var claims tokenClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || !tok.Valid {
		return nil, 0, errInvalidToken
	}
	if claims.Kind != kind {
		return nil, 0, errInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, 0, errInvalidToken
	}

	t.mu.Lock()
	_, revoked := t.revoked[claims.ID]
	t.mu.Unlock()
	if revoked {
		return nil, 0, errInvalidToken
	}
	return &claims, userID, nil
}

// revoke invalidates the token with claims c until it would have expired.
func (t *tokenIssuer) revoke(c *tokenClaims) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for id, exp := range t.revoked {
		if exp.Before(now) {
			delete(t.revoked, id)
		}
	}
	exp := now
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Time
	}
	t.revoked[c.ID] = exp
}
