package jsonl

import (
	"context"
	"fmt"

	"github.com/martijn/accountd/internal/core/domain"
	"github.com/martijn/accountd/internal/core/repository"
)

type userRepository struct {
	users *Collection
}

func NewUserRepository(users *Collection) repository.UserRepository {
	return &userRepository{users: users}
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	docs, err := r.users.Find(ctx, Document{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]*domain.User, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.UserFromDocument(doc))
	}
	return out, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	doc, err := r.users.FindOne(ctx, Document{domain.FieldUsername: username})
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if doc == nil {
		return nil, repository.ErrNotFound
	}
	return domain.UserFromDocument(doc), nil
}

func (r *userRepository) Insert(ctx context.Context, user *domain.User) (*domain.User, error) {
	doc, err := r.users.Insert(ctx, user.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return domain.UserFromDocument(doc), nil
}

func (r *userRepository) SetAuth(ctx context.Context, username, token string) (int64, error) {
	matched, err := r.users.Update(ctx,
		Document{domain.FieldUsername: username},
		Document{domain.FieldAuth: token},
		nil,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to set auth token: %w", err)
	}
	return int64(matched), nil
}

func (r *userRepository) ClearAuth(ctx context.Context, username string) (int64, error) {
	matched, err := r.users.Update(ctx,
		Document{domain.FieldUsername: username},
		nil,
		[]string{domain.FieldAuth},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clear auth token: %w", err)
	}
	return int64(matched), nil
}

func (r *userRepository) UpdateFields(ctx context.Context, username string, fields map[string]any) (int64, error) {
	set := make(Document, len(fields))
	for k, v := range fields {
		if k == domain.FieldUsername || k == domain.FieldID {
			continue
		}
		set[k] = v
	}

	matched, err := r.users.Update(ctx, Document{domain.FieldUsername: username}, set, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to update user: %w", err)
	}
	return int64(matched), nil
}

func (r *userRepository) Delete(ctx context.Context, username string) (int64, error) {
	deleted, err := r.users.Delete(ctx, Document{domain.FieldUsername: username})
	if err != nil {
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}
	return int64(deleted), nil
}
