package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/problem-hub/internal/apperror"
	"github.com/sakif/problem-hub/internal/auth"
	"github.com/sakif/problem-hub/internal/model"
	"github.com/sakif/problem-hub/internal/repository"
)

// AuthService handles registration, login, and token verification.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// It never sees HTTP types: the handler decodes the body and passes plain
// strings, and AuthService hands back domain errors for the handler to map.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

var _ auth.Verifier = (*AuthService)(nil)

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is returned by Register and Login: the signed token plus the
// public view of the user it was issued for.
type AuthResult struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// Register creates a new account and signs a token for it.
//
// Email and username are both unique: if either is already taken the
// call fails with apperror.ErrConflict and nothing is written. The store
// enforces the same rule with UNIQUE constraints, so a registration that
// races past UserExists still ends in Conflict rather than a duplicate.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	switch {
	case username == "":
		return nil, apperror.ValidationFailed("username", "username is required")
	case email == "":
		return nil, apperror.ValidationFailed("email", "email is required")
	case password == "":
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	exists, err := s.users.UserExists(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking existing user: %w", err)
	}
	if exists {
		return nil, apperror.Conflict("user already exists")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issue(user)
}

// Login checks an email/password pair. An unknown email and a wrong
// password produce the same apperror.ErrInvalidCredentials so callers
// cannot probe which emails are registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.InvalidCredentials()
		}
		s.logger.Error("stored password hash is unusable",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.issue(user)
}

// Verify is a thin delegation to TokenService.Verify so the router only
// needs the service to build its auth middleware.
func (s *AuthService) Verify(token string) (auth.Identity, error) {
	return s.tokens.Verify(token)
}

// STALE IDENTITIES:
// A token stays valid for its whole TTL even if the user row it names is
// gone (a reset database, a restore from an older backup). Verify does not
// hit the store, so the first write that references the user is where this
// surfaces, as repository.ErrUnknownAuthor from a foreign key. callerGone
// reports it to the client as an invalid token (403) rather than a 500.
func callerGone(err error) error {
	if errors.Is(err, repository.ErrUnknownAuthor) {
		return apperror.InvalidToken(err)
	}
	return err
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{Token: token, User: user.Public()}, nil
}
