package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService signs and verifies session tokens. Tokens carry only a username
// claim and never expire; validity is purely signature-based.
type TokenService struct {
	secret    string
	algorithm string
}

type tokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewTokenService(secret, algorithm string) *TokenService {
	return &TokenService{
		secret:    secret,
		algorithm: algorithm,
	}
}

// Issue signs a new token embedding the username.
func (s *TokenService) Issue(username string) (string, error) {
	claims := tokenClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	var signingMethod jwt.SigningMethod
	switch s.algorithm {
	case "HS256":
		signingMethod = jwt.SigningMethodHS256
	case "HS384":
		signingMethod = jwt.SigningMethodHS384
	case "HS512":
		signingMethod = jwt.SigningMethodHS512
	default:
		signingMethod = jwt.SigningMethodHS256
	}

	token := jwt.NewWithClaims(signingMethod, claims)
	tokenString, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Verify checks the token's signature and returns the embedded username.
// An empty token fails closed.
func (s *TokenService) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("missing token")
	}

	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if token.Method.Alg() != s.algorithm {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(*tokenClaims); ok && token.Valid {
		return claims.Username, nil
	}

	return "", fmt.Errorf("invalid token claims")
}
