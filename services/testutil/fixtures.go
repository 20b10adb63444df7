package testutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"brokerage/libs/auth"
)

const (
	DemoCustomerID  = "00000000-0000-0000-0000-000000000001"
	AdminCustomerID = "00000000-0000-0000-0000-000000000002"
)

func GenerateJWT(customerID string, roles []string, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	claims := auth.Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "brokerage-auth",
			Subject:   customerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
