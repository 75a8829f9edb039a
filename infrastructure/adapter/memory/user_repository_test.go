package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/flowauth/application/port/outbound"
	"github.com/fixora/flowauth/domain/entity"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	repo.GrantPermissions("admin", "user:create", "user:delete")
	repo.GrantPermissions("USER", "leave:apply", "user:create")

	alice := entity.NewUser("alice", "hash")
	require.NoError(t, repo.Create(ctx, alice, []string{"ADMIN", "USER"}))
	assert.Equal(t, int64(1), alice.ID)

	t.Run("find by username and id", func(t *testing.T) {
		u, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, u.ID)

		u, err = repo.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.FindByUsername(ctx, "bob")
		assert.ErrorIs(t, err, outbound.ErrUserNotFound)
		_, err = repo.FindByID(ctx, 99)
		assert.ErrorIs(t, err, outbound.ErrUserNotFound)
		_, err = repo.FindAuthorities(ctx, 99)
		assert.ErrorIs(t, err, outbound.ErrUserNotFound)
	})

	t.Run("duplicate username", func(t *testing.T) {
		err := repo.Create(ctx, entity.NewUser("alice", "x"), nil)
		assert.ErrorIs(t, err, outbound.ErrUserAlreadyExists)
		exists, _ := repo.ExistsByUsername(ctx, "alice")
		assert.True(t, exists)
	})

	t.Run("authorities are roles then unique permissions", func(t *testing.T) {
		auths, err := repo.FindAuthorities(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_USER", "leave:apply", "user:create", "user:delete"}, auths)
	})

	t.Run("role changes are visible on next lookup", func(t *testing.T) {
		require.NoError(t, repo.AssignRoles(ctx, alice.ID, "USER"))
		auths, err := repo.FindAuthorities(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"ROLE_USER", "leave:apply", "user:create"}, auths)
	})

	t.Run("returned users are copies", func(t *testing.T) {
		u, _ := repo.FindByID(ctx, alice.ID)
		u.Status = entity.UserStatusDisabled
		again, _ := repo.FindByID(ctx, alice.ID)
		assert.True(t, again.IsEnabled())

		require.NoError(t, repo.UpdateStatus(ctx, alice.ID, entity.UserStatusDisabled))
		again, _ = repo.FindByID(ctx, alice.ID)
		assert.False(t, again.IsEnabled())
	})
}

func TestUserRepositoryManagement(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		u := entity.NewUser(name, "hash")
		if name == "carol" {
			u.RealName = "Carol Alicea"
		}
		require.NoError(t, repo.Create(ctx, u, []string{"USER"}))
	}

	t.Run("update re-keys the username", func(t *testing.T) {
		u, err := repo.FindByUsername(ctx, "bob")
		require.NoError(t, err)
		u.Username = "robert"
		u.Email = "robert@example.com"
		require.NoError(t, repo.Update(ctx, u))

		_, err = repo.FindByUsername(ctx, "bob")
		assert.ErrorIs(t, err, outbound.ErrUserNotFound)
		found, err := repo.FindByUsername(ctx, "robert")
		require.NoError(t, err)
		assert.Equal(t, "robert@example.com", found.Email)
	})

	t.Run("update rejects a taken username", func(t *testing.T) {
		u, _ := repo.FindByUsername(ctx, "robert")
		u.Username = "alice"
		assert.ErrorIs(t, repo.Update(ctx, u), outbound.ErrUserAlreadyExists)
	})

	t.Run("find all pages and filters", func(t *testing.T) {
		users, total, err := repo.FindAll(ctx, 0, 2, outbound.UserFilters{})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, users, 2)
		assert.Equal(t, "alice", users[0].Username)
		assert.Equal(t, "robert", users[1].Username)

		users, total, err = repo.FindAll(ctx, 10, 2, outbound.UserFilters{})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Empty(t, users)

		users, total, err = repo.FindAll(ctx, 0, 10, outbound.UserFilters{Keyword: "ALIC"})
		require.NoError(t, err)
		assert.Equal(t, 2, total, "matches username alice and real name Carol Alicea")
		assert.Equal(t, "carol", users[1].Username)

		disabled := entity.UserStatusDisabled
		require.NoError(t, repo.UpdateStatus(ctx, users[1].ID, disabled))
		users, _, err = repo.FindAll(ctx, 0, 10, outbound.UserFilters{Status: &disabled})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "carol", users[0].Username)
	})

	t.Run("soft delete hides the user and keeps the name reserved", func(t *testing.T) {
		dave, err := repo.FindByUsername(ctx, "dave")
		require.NoError(t, err)
		require.NoError(t, repo.SoftDelete(ctx, dave.ID))

		_, err = repo.FindByID(ctx, dave.ID)
		assert.ErrorIs(t, err, outbound.ErrUserNotFound)
		_, err = repo.FindAuthorities(ctx, dave.ID)
		assert.ErrorIs(t, err, outbound.ErrUserNotFound)
		assert.ErrorIs(t, repo.SoftDelete(ctx, dave.ID), outbound.ErrUserNotFound)
		assert.ErrorIs(t, repo.Update(ctx, dave), outbound.ErrUserNotFound)

		_, total, err := repo.FindAll(ctx, 0, 10, outbound.UserFilters{})
		require.NoError(t, err)
		assert.Equal(t, 3, total)

		exists, err := repo.ExistsByUsername(ctx, "dave")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.ErrorIs(t, repo.Create(ctx, entity.NewUser("dave", "x"), nil), outbound.ErrUserAlreadyExists)
	})
}
