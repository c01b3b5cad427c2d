package memory

import (
	"context"
	"testing"

	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(t *testing.T, name, email string) user.User {
	t.Helper()

	hash, err := security.NewHasher().Hash("secret123")
	require.NoError(t, err)

	u, err := user.New(name, email, hash)
	require.NoError(t, err)
	return u
}

func TestUsersRepo_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()

	created, err := repo.Create(ctx, newUser(t, "Ada", "Ada@Example.com"))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", created.Email)

	byEmail, err := repo.GetByEmail(ctx, "  ADA@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUsersRepo_EmailUniqueIgnoresCase(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()

	_, err := repo.Create(ctx, newUser(t, "Ada", "ada@example.com"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newUser(t, "Imposter", "ADA@example.com"))
	assert.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestUsersRepo_RejectsPlainPassword(t *testing.T) {
	repo := NewUsersRepo()

	u := newUser(t, "Ada", "ada@example.com")
	u.PasswordHash = "secret123"

	_, err := repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, user.ErrPlainPassword)
}

func TestUsersRepo_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()

	u, err := repo.Create(ctx, newUser(t, "Ada", "ada@example.com"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, u.ID))
	assert.ErrorIs(t, repo.Delete(ctx, u.ID), user.ErrNotFound)

	// the address is free again
	_, err = repo.Create(ctx, newUser(t, "Ada", "ada@example.com"))
	assert.NoError(t, err)
}
