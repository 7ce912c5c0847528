package services

import (
	"context"
	"errors"
	"fmt"

	"teamreports/internal/auth"
	"teamreports/internal/core"
	"teamreports/internal/store"
)

// AuthService checks credentials and hands out session tokens.
type AuthService struct {
	users  store.UserStore
	tokens *auth.TokenIssuer
}

func NewAuthService(users store.UserStore, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Login returns auth.ErrInvalidCredentials for an unknown e-mail or a wrong
// password alike.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, core.User, error) {
	u, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", core.User{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return "", core.User{}, fmt.Errorf("find user: %w", err)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return "", core.User{}, err
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return "", core.User{}, err
	}
	return token, u, nil
}

// Register hashes password and stores a new account.
func (s *AuthService) Register(ctx context.Context, email, password string, role core.Role) (core.User, error) {
	if password == "" {
		return core.User{}, fmt.Errorf("%w: password is required", ErrValidation)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}
	u, err := s.users.CreateUser(ctx, core.User{Email: email, PasswordHash: hash, Role: role})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}
