package sqlite

import (
	"context"
	"testing"

	"github.com/martijn/accountd/internal/core/domain"
	"github.com/martijn/accountd/internal/core/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUserRepo(t *testing.T) repository.UserRepository {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewUserRepository(db)
}

func TestUserRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := setupUserRepo(t)

	user := domain.NewUser("alice", "$2a$10$hash", "a@x.com", "Alice")
	user.Auth = "token"
	user.Extra = map[string]any{"nickname": "al"}

	created, err := repo.Insert(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "$2a$10$hash", found.Password)
	assert.Equal(t, "token", found.Auth)
	assert.Equal(t, "al", found.Extra["nickname"])
}

func TestUserRepositoryFindMissing(t *testing.T) {
	ctx := context.Background()
	repo := setupUserRepo(t)

	_, err := repo.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo := setupUserRepo(t)

	_, err := repo.Insert(ctx, domain.NewUser("alice", "h1", "a@x.com", "Alice"))
	require.NoError(t, err)
	_, err = repo.Insert(ctx, domain.NewUser("bob", "h2", "b@x.com", "Bob"))
	require.NoError(t, err)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}

func TestUserRepositoryAuthLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := setupUserRepo(t)

	_, err := repo.Insert(ctx, domain.NewUser("alice", "hash", "a@x.com", "Alice"))
	require.NoError(t, err)

	matched, err := repo.SetAuth(ctx, "alice", "tok-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, matched)

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", found.Auth)

	matched, err = repo.ClearAuth(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, matched)

	found, err = repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, found.Auth)

	matched, err = repo.SetAuth(ctx, "ghost", "tok")
	require.NoError(t, err)
	assert.EqualValues(t, 0, matched)
}

func TestUserRepositoryUpdateFields(t *testing.T) {
	ctx := context.Background()
	repo := setupUserRepo(t)

	created, err := repo.Insert(ctx, domain.NewUser("alice", "hash", "a@x.com", "Alice"))
	require.NoError(t, err)

	matched, err := repo.UpdateFields(ctx, "alice", map[string]any{
		"email":    "new@x.com",
		"nickname": "al",
		"username": "mallory", // must be ignored
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, matched)

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", found.Email)
	assert.Equal(t, "al", found.Extra["nickname"])
	assert.Equal(t, created.ID, found.ID)

	matched, err = repo.UpdateFields(ctx, "ghost", map[string]any{"email": "x"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, matched)
}

func TestUserRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo := setupUserRepo(t)

	_, err := repo.Insert(ctx, domain.NewUser("alice", "hash", "a@x.com", "Alice"))
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	deleted, err = repo.Delete(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 0, deleted)
}
