package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in tokens.
const (
	RoleStation = "station"
	RoleAdmin   = "admin"
)

// Token types. Only access tokens open API routes; a refresh token is good
// for nothing but minting a new pair.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrTokenType is returned when a token of the wrong type is presented.
var ErrTokenType = errors.New("wrong token type")

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"-"`
	RefreshExp   time.Time `json:"-"`
}

// Claims represents JWT payload.
type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	Type    string `json:"typ"`
	jwt.RegisteredClaims
}

// Issue issues signed access and refresh tokens for a station or an admin.
func Issue(subject, role, issuer, key string, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	if subject == "" || role == "" {
		return TokenPair{}, errors.New("subject and role required")
	}
	now := time.Now()
	accessExp := now.Add(accessTTL)
	refreshExp := now.Add(refreshTTL)

	sign := func(typ string, exp time.Time) (string, error) {
		claims := Claims{
			Subject: subject,
			Role:    role,
			Type:    typ,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				Subject:   subject,
				ExpiresAt: jwt.NewNumericDate(exp),
				IssuedAt:  jwt.NewNumericDate(now),
			},
		}
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	}

	accessToken, err := sign(TypeAccess, accessExp)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := sign(TypeRefresh, refreshExp)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	return *claims, nil
}

// ParseAs is Parse restricted to one token type.
func ParseAs(tokenStr, key, issuer, typ string) (Claims, error) {
	claims, err := Parse(tokenStr, key, issuer)
	if err != nil {
		return Claims{}, err
	}
	if claims.Type != typ {
		return Claims{}, ErrTokenType
	}
	return claims, nil
}
