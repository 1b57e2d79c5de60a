package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rafaelguerrae/TeamSync/internal/model"
)

func TestUserService_Update(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTeamFixture(t)

	t.Run("only self", func(t *testing.T) {
		name := "Mallory"
		_, err := f.users.Update(ctx, f.carol.ID, f.alice.ID, model.UpdateUserRequest{Name: &name})
		require.ErrorIs(t, err, model.ErrForbidden)

		require.ErrorIs(t, f.users.Delete(ctx, f.carol.ID, f.alice.ID), model.ErrForbidden)
	})

	t.Run("email conflict", func(t *testing.T) {
		email := "BOB@x.io"
		_, err := f.users.Update(ctx, f.alice.ID, f.alice.ID, model.UpdateUserRequest{Email: &email})
		require.ErrorIs(t, err, model.ErrDuplicateEmail)
	})

	t.Run("partial update", func(t *testing.T) {
		name := "Alice Liddell"
		user, err := f.users.Update(ctx, f.alice.ID, f.alice.ID, model.UpdateUserRequest{Name: &name})
		require.NoError(t, err)
		require.Equal(t, "Alice Liddell", user.Name)
		require.Equal(t, "alice@x.io", user.Email)
	})

	t.Run("short password rejected", func(t *testing.T) {
		password := "123"
		_, err := f.users.Update(ctx, f.alice.ID, f.alice.ID, model.UpdateUserRequest{Password: &password})
		require.Error(t, err)
	})
}

func TestUserService_Queries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newTeamFixture(t)

	all, err := f.users.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	found, err := f.users.Search(ctx, "car")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, f.carol.ID, found[0].ID)

	_, err = f.users.Get(ctx, 999)
	require.ErrorIs(t, err, model.ErrUserNotFound)

	_, err = f.users.Teams(ctx, 999)
	require.ErrorIs(t, err, model.ErrUserNotFound)

	require.NoError(t, f.users.Delete(ctx, f.carol.ID, f.carol.ID))
	_, err = f.users.Get(ctx, f.carol.ID)
	require.ErrorIs(t, err, model.ErrUserNotFound)
}
