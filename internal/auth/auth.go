package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hnpulse/hnpulse/internal/store"
)

var (
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Service handles registration, login, and token validation
type Service struct {
	store    store.Store
	tokenTTL time.Duration
	now      func() time.Time
}

// NewService creates a new auth service
func NewService(s store.Store, tokenTTL time.Duration) *Service {
	return &Service{
		store:    s,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Register creates a user with a bcrypt-hashed password
func (s *Service) Register(ctx context.Context, username, password string) (*store.User, error) {
	existing, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues an opaque bearer token
func (s *Service) Login(ctx context.Context, username, password string) (*store.Token, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, err
	}

	token := &store.Token{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     base64.URLEncoding.EncodeToString(tokenBytes),
		ExpiresAt: s.now().UTC().Add(s.tokenTTL),
	}

	if err := s.store.CreateToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ValidateToken checks if a token exists and has not expired. Returns nil
// for unknown or expired tokens.
func (s *Service) ValidateToken(ctx context.Context, tokenStr string) (*store.Token, error) {
	token, err := s.store.GetToken(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, nil
	}
	if s.now().After(token.ExpiresAt) {
		return nil, nil
	}
	return token, nil
}
