package auth

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type JWTService struct {
	secretKey []byte
}

func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
	}
}

// TokenPair is what device registration and refresh hand back. Tokens
// do not expire; expires is -1 for compatibility with the mobile SDK.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Expires      int64  `json:"expires"`
}

// GenerateDeviceToken signs a device-scoped token pair. The refresh
// token is the md5 hex of the access token.
func (s *JWTService) GenerateDeviceToken(org string, deviceID int64, model string) (*TokenPair, error) {
	claims := jwt.MapClaims{
		"org":      org,
		"deviceId": deviceID,
		"model":    model,
		"iat":      time.Now().Unix(),
	}
	access, err := s.sign(claims)
	if err != nil {
		return nil, err
	}
	sum := md5.Sum([]byte(access))
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: hex.EncodeToString(sum[:]),
		Expires:      -1,
	}, nil
}

// GenerateOrgToken signs a session token for the site dashboard.
func (s *JWTService) GenerateOrgToken(org string, companyID int64, admin bool) (string, error) {
	claims := jwt.MapClaims{
		"org": org,
		"iat": time.Now().Unix(),
	}
	if companyID != 0 {
		claims["companyId"] = companyID
	}
	if admin {
		claims["admin"] = true
	}
	return s.sign(claims)
}

func (s *JWTService) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return signed, nil
}
