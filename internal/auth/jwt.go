// Package auth provides bearer token issuance/verification, password
// hashing, and the middleware that authenticates API requests.
//
// Tokens are HS256 JWTs carrying the user's id and username:
//
//	{"userId":"cv37rs3pp9olc6atsptg","username":"alice","iss":"problem-hub","iat":...,"exp":...}
//
// Verification needs only the secret; there is no session table.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/problem-hub/internal/apperror"
)

const issuer = "problem-hub"

// Identity is the authenticated caller as recovered from a token.
type Identity struct {
	UserID   string
	Username string
}

// TokenService signs and verifies JWTs with a single HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService that issues tokens valid for ttl.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// claims is the JWT payload.
type claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Generate signs a token for id that expires TTL from now.
func (s *TokenService) Generate(id Identity) (string, error) {
	now := s.now()

	c := claims{
		UserID:   id.UserID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify checks a bearer token and returns the identity it carries.
//
// An empty token yields apperror.ErrUnauthenticated; anything else that
// fails (bad signature, wrong algorithm, wrong issuer, expired, garbage)
// yields apperror.ErrInvalidToken. Callers map the two differently.
//
// PARSER OPTIONS:
//   - WithValidMethods pins HS256. A token whose header says "none" or
//     RS256 is rejected before the key function runs.
//   - WithIssuer rejects tokens minted by another service sharing the
//     secret.
//   - WithExpirationRequired rejects tokens without an exp claim; by
//     default jwt/v5 only checks exp when it is present.
//   - WithTimeFunc lets tests move the clock instead of sleeping.
//
// Verify never touches the database. A token for a user row that has
// since disappeared still verifies; writes catch that case.
func (s *TokenService) Verify(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, apperror.Unauthenticated("access token required")
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperror.InvalidToken(errors.New("token expired"))
		}
		return Identity{}, apperror.InvalidToken(err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, apperror.InvalidToken(errors.New("invalid token claims"))
	}
	if c.UserID == "" {
		return Identity{}, apperror.InvalidToken(errors.New("token has no user id"))
	}

	return Identity{UserID: c.UserID, Username: c.Username}, nil
}
