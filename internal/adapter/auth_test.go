package adapter

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicAuthHeaderProvider(t *testing.T) {
	p := BasicAuthHeaderProvider{Username: "alice", Password: "s3cret"}

	header, err := p.AuthHeader()
	require.NoError(t, err)
	assert.Equal(t, "Basic YWxpY2U6czNjcmV0", header)
}

func TestBasicAuthHeaderProvider_EmptyUsername(t *testing.T) {
	p := BasicAuthHeaderProvider{Password: "s3cret"}

	_, err := p.AuthHeader()
	require.Error(t, err)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-sign-key"))
	require.NoError(t, err)
	return signed
}

func TestTokenAuthHeaderProvider_ValidToken(t *testing.T) {
	raw := signedToken(t, time.Now().Add(time.Hour))
	p := TokenAuthHeaderProvider{Token: raw}

	header, err := p.AuthHeader()
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+raw, header)
}

func TestTokenAuthHeaderProvider_ExpiredToken(t *testing.T) {
	p := TokenAuthHeaderProvider{Token: signedToken(t, time.Now().Add(-time.Minute))}

	_, err := p.AuthHeader()
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenAuthHeaderProvider_GarbageToken(t *testing.T) {
	p := TokenAuthHeaderProvider{Token: "not.a.jwt"}

	_, err := p.AuthHeader()
	require.Error(t, err)
}
