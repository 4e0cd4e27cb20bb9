package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "learninghouse"

type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Token is handed out on a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type TokenIssuer struct {
	secretKey []byte
	expire    time.Duration
	now       func() time.Time
}

func NewTokenIssuer(secret string, expire time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secretKey: []byte(secret),
		expire:    expire,
		now:       time.Now,
	}
}

func (ti *TokenIssuer) Issue(role Role) (Token, error) {
	now := ti.now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.expire)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   string(role),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secretKey)
	if err != nil {
		return Token{}, err
	}

	return Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(ti.expire.Seconds()),
	}, nil
}

func (ti *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return ti.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(ti.now))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
