package testhelpers

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestJWTSecret is the HS256 secret used by handler tests.
const TestJWTSecret = "test-secret-at-least-32-bytes-long!!"

// GenerateTestToken creates an HS256 token for the given user and role,
// signed with TestJWTSecret and valid for one hour.
func GenerateTestToken(userID, role string) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(TestJWTSecret))
	if err != nil {
		panic(err)
	}
	return signed
}

// GenerateTestTokenWithBearer returns the token with "Bearer " prefix for the Authorization header.
func GenerateTestTokenWithBearer(userID, role string) string {
	return "Bearer " + GenerateTestToken(userID, role)
}
