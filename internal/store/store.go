package store

import "context"

// Store defines the interface for user and token persistence
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// Tokens
	CreateToken(ctx context.Context, token *Token) error
	GetToken(ctx context.Context, tokenStr string) (*Token, error)
	DeleteExpiredTokens(ctx context.Context) error

	// Lifecycle
	Close() error
}
