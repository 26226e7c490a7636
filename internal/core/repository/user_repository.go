package repository

import (
	"context"
	"errors"

	"github.com/martijn/accountd/internal/core/domain"
)

// ErrNotFound is returned when no user matches the given username.
var ErrNotFound = errors.New("user not found")

type UserRepository interface {
	// List returns all records in insertion order.
	List(ctx context.Context) ([]*domain.User, error)
	// FindByUsername returns ErrNotFound when the username is absent.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Insert stores a new record and returns it with its assigned id. It does
	// not enforce username uniqueness; that check lives in the service.
	Insert(ctx context.Context, user *domain.User) (*domain.User, error)
	// SetAuth overwrites the record's session token. Returns the matched count.
	SetAuth(ctx context.Context, username, token string) (int64, error)
	// ClearAuth removes the auth field entirely. Returns the matched count.
	ClearAuth(ctx context.Context, username string) (int64, error)
	// UpdateFields overwrites the given fields on the record. The username and
	// id fields are never rewritten. Returns the matched count.
	UpdateFields(ctx context.Context, username string, fields map[string]any) (int64, error)
	// Delete removes the record. Returns the deleted count.
	Delete(ctx context.Context, username string) (int64, error)
}
