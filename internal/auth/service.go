package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/whispr-im/whispr-server/internal/core"
	"github.com/whispr-im/whispr-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrMissingCredential is returned when a connection presents no token.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential is returned for malformed or badly-signed tokens,
	// and for tokens whose subject no longer exists. The two cases are
	// indistinguishable to the client so valid user IDs never leak.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrExpiredCredential is returned for well-formed but expired tokens.
	ErrExpiredCredential = errors.New("expired credential")
)

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// Register creates a new user with hashed password and returns a JWT token.
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return "", ErrInvalidUsername
	}
	if len(password) < 6 {
		return "", ErrInvalidPassword
	}

	existing, err := s.store.GetUserByUsername(ctx, username)
	if err == nil && existing != nil {
		return "", ErrUserExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, hashedPassword)
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// Login validates credentials and returns a JWT token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// VerifyConnection resolves a connection credential to a user identity. It is
// called exactly once per connection, before the transport is upgraded; any
// failure terminates the connection attempt and no application event is ever
// processed on an unauthenticated connection.
//
// The username is read from the user store, not taken from the token, so a
// stale token always resolves to the current account state.
func (s *Service) VerifyConnection(ctx context.Context, token string) (core.Identity, error) {
	if token == "" {
		return core.Identity{}, ErrMissingCredential
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return core.Identity{}, ErrExpiredCredential
		}
		return core.Identity{}, ErrInvalidCredential
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Unknown subject is reported as an invalid credential.
			return core.Identity{}, ErrInvalidCredential
		}
		return core.Identity{}, fmt.Errorf("resolve subject: %w", err)
	}

	return core.Identity{UserID: user.ID, Username: user.Username}, nil
}
