package adapter

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired indicates the bearer token's exp claim is in the past.
var ErrTokenExpired = errors.New("auth token expired")

// BasicAuthHeaderProvider builds a Basic Authorization header from account
// credentials.
type BasicAuthHeaderProvider struct {
	Username string
	Password string
}

func (p BasicAuthHeaderProvider) AuthHeader() (string, error) {
	if p.Username == "" {
		return "", errors.New("empty username for basic auth")
	}
	cred := base64.StdEncoding.EncodeToString([]byte(p.Username + ":" + p.Password))
	return "Basic " + cred, nil
}

// TokenAuthHeaderProvider builds a Bearer Authorization header from a JWT
// issued by the account server. The token is parsed unverified (the storage
// server verifies the signature); only the expiry claim is checked locally
// so an expired token surfaces as an auth failure before the round trip.
type TokenAuthHeaderProvider struct {
	Token string
}

func (p TokenAuthHeaderProvider) AuthHeader() (string, error) {
	if p.Token == "" {
		return "", errors.New("empty bearer token")
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(p.Token, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("parse bearer token: %w", err)
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return "", fmt.Errorf("read token expiry: %w", err)
	}
	if exp != nil && exp.Before(time.Now()) {
		return "", ErrTokenExpired
	}

	return "Bearer " + p.Token, nil
}
