package token

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleType set member role
type RoleType string

const (
	// RoleAdmin is the admin role
	RoleAdmin RoleType = "admin"
	// RoleConsumer is the ordinary user role
	RoleConsumer RoleType = "consumer"
	// RoleBusiness is the business account role, its sends are metered
	RoleBusiness RoleType = "business"
)

// Claims structure for custom claims in JWT
type Claims struct {
	MemberID string `json:"user_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// MinSecretLength shortest accepted HS256 signing key
const MinSecretLength = 16

// signing key, random per process until SetSecret loads the configured one
var (
	secretMu        sync.RWMutex
	jwtSecret       = randomSecret()
	tokenExpiration = 60 * time.Minute
)

func randomSecret() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("jwt secret: " + err.Error())
	}
	return b
}

// SetSecret replace the signing key, tokens signed with the previous key stop validating
func SetSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return errors.New("jwt secret must be at least 16 bytes")
	}
	secretMu.Lock()
	jwtSecret = []byte(secret)
	secretMu.Unlock()
	return nil
}

func currentSecret() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return jwtSecret
}

// GenerateJWT generates a JWT token
func GenerateJWT(memberID, role, issuer string) (string, error) {
	claims := Claims{
		MemberID: memberID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(currentSecret())
}

// ParseJWT parses a JWT and extracts the Claims
func ParseJWT(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return currentSecret(), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.MemberID == "" {
		return nil, errors.New("token without member id")
	}

	return claims, nil
}
