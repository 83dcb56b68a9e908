// Package auth handles registration, login and token validation for the
// HTTP API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shipforge/payment-ledger/internal/lib/jwt"
	"github.com/shipforge/payment-ledger/internal/lib/password"
	"github.com/shipforge/payment-ledger/internal/models"
)

var (
	// ErrInvalidCredentials covers unknown users, wrong passwords and users
	// created by import that have no password yet.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists signals a registration with an already-taken e-mail or
	// username.
	ErrUserExists = errors.New("user already exists")
)

// Repo is the user storage the auth service needs.
type Repo interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, bool, error)
	RegisterUser(ctx context.Context, user models.User) (string, error)
}

// Service implements registration and login on top of bcrypt and JWT.
type Service struct {
	log   *slog.Logger
	repo  Repo
	maker jwt.Maker
}

// New builds the auth service.
func New(log *slog.Logger, repo Repo, maker jwt.Maker) *Service {
	return &Service{log: log, repo: repo, maker: maker}
}

// Register creates a user with the given credentials and returns its UID.
func (s *Service) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	const op = "auth.Register"

	if _, found, err := s.repo.FindUserByEmail(ctx, email); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	} else if found {
		return "", fmt.Errorf("%s: %w", op, ErrUserExists)
	}
	if _, found, err := s.repo.GetUserByUsername(ctx, username); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	} else if found {
		return "", fmt.Errorf("%s: %w", op, ErrUserExists)
	}

	hash, err := password.GetHash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	uid, err := s.repo.RegisterUser(ctx, models.User{
		Email:        strings.ToLower(email),
		Username:     username,
		PasswordHash: &hash,
		Role:         "user",
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user registered", slog.String("username", username))
	return uid, nil
}

// Login verifies the credentials and returns a signed token. Users created
// by import carry no password hash and cannot log in until one is set.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (string, error) {
	const op = "auth.Login"

	user, found, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !found || user.PasswordHash == nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err := password.CompareHash(*user.PasswordHash, rawPassword); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := s.maker.GenerateToken(user.Username, user.Role, user.UID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// ValidateToken parses and verifies a bearer token.
func (s *Service) ValidateToken(tokenStr string) (*jwt.CustomClaims, error) {
	const op = "auth.ValidateToken"

	claims, err := s.maker.ParseToken(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claims, nil
}
