package auth

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateDeviceToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	pair, err := svc.GenerateDeviceToken("acme", 42, "TestPhone")
	require.NoError(t, err)
	require.EqualValues(t, -1, pair.Expires)

	sum := md5.Sum([]byte(pair.AccessToken))
	require.Equal(t, hex.EncodeToString(sum[:]), pair.RefreshToken)

	token, err := jwt.Parse(pair.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	require.Equal(t, "acme", claims["org"])
	require.EqualValues(t, 42, claims["deviceId"])
	require.Equal(t, "TestPhone", claims["model"])
}

func TestGenerateOrgToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	signed, err := svc.GenerateOrgToken("acme", 7, false)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	require.Equal(t, "acme", claims["org"])
	require.EqualValues(t, 7, claims["companyId"])
	_, hasAdmin := claims["admin"]
	require.False(t, hasAdmin)
}

func TestGenerateAdminToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	signed, err := svc.GenerateOrgToken("admin", 0, true)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	require.Equal(t, true, claims["admin"])
	_, hasCompany := claims["companyId"]
	require.False(t, hasCompany)
}
