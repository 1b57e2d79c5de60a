package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rafaelguerrae/TeamSync/internal/model"
)

func seedUser(t *testing.T, repo *MemoryUserRepository, email string) model.User {
	t.Helper()

	u, err := repo.Create(context.Background(), model.User{Email: email, Name: email, Alias: email, PasswordHash: "x"})
	require.NoError(t, err)
	return u
}

func TestMemoryUserRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := NewMemoryStore().Users()

	alice := seedUser(t, users, "alice@x.io")
	bob := seedUser(t, users, "bob@x.io")
	require.NotEqual(t, alice.ID, bob.ID)

	t.Run("unique email", func(t *testing.T) {
		_, err := users.Create(ctx, model.User{Email: "alice@x.io"})
		require.ErrorIs(t, err, model.ErrDuplicateEmail)

		bob.Email = "alice@x.io"
		_, err = users.Update(ctx, bob)
		require.ErrorIs(t, err, model.ErrDuplicateEmail)
	})

	t.Run("find", func(t *testing.T) {
		found, err := users.FindByEmail(ctx, "alice@x.io")
		require.NoError(t, err)
		require.Equal(t, alice.ID, found.ID)

		_, err = users.FindByID(ctx, 999)
		require.ErrorIs(t, err, model.ErrUserNotFound)
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		found, err := users.Search(ctx, "BOB")
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Equal(t, "bob@x.io", found[0].Email)

		all, err := users.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		require.Equal(t, alice.ID, all[0].ID)
	})
}

func TestMemoryTeamRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()
	users := store.Users()
	teams := store.Teams()

	alice := seedUser(t, users, "alice@x.io")
	bob := seedUser(t, users, "bob@x.io")

	team, err := teams.Create(ctx, model.Team{Alias: "core", Name: "Core", CreatedAt: time.Now()}, alice.ID)
	require.NoError(t, err)

	t.Run("creator is administrator", func(t *testing.T) {
		m, err := teams.Membership(ctx, team.ID, alice.ID)
		require.NoError(t, err)
		require.Equal(t, model.RoleAdministrator, m.Role)
	})

	t.Run("alias is unique", func(t *testing.T) {
		_, err := teams.Create(ctx, model.Team{Alias: "core"}, alice.ID)
		require.ErrorIs(t, err, model.ErrTeamAliasTaken)
	})

	t.Run("membership lifecycle", func(t *testing.T) {
		_, err := teams.AddMember(ctx, model.Membership{TeamID: team.ID, UserID: bob.ID, Role: model.RoleMember})
		require.NoError(t, err)

		_, err = teams.AddMember(ctx, model.Membership{TeamID: team.ID, UserID: bob.ID, Role: model.RoleMember})
		require.ErrorIs(t, err, model.ErrAlreadyMember)

		_, err = teams.AddMember(ctx, model.Membership{TeamID: team.ID, UserID: 404, Role: model.RoleMember})
		require.ErrorIs(t, err, model.ErrUserNotFound)

		members, err := teams.Members(ctx, team.ID)
		require.NoError(t, err)
		require.Len(t, members, 2)

		updated, err := teams.UpdateMemberRole(ctx, team.ID, bob.ID, model.RoleAdministrator)
		require.NoError(t, err)
		require.Equal(t, model.RoleAdministrator, updated.Role)

		require.NoError(t, teams.RemoveMember(ctx, team.ID, bob.ID))
		require.ErrorIs(t, teams.RemoveMember(ctx, team.ID, bob.ID), model.ErrMembershipNotFound)
	})

	t.Run("deleting a user drops memberships", func(t *testing.T) {
		carol := seedUser(t, users, "carol@x.io")
		_, err := teams.AddMember(ctx, model.Membership{TeamID: team.ID, UserID: carol.ID, Role: model.RoleMember})
		require.NoError(t, err)

		require.NoError(t, users.Delete(ctx, carol.ID))

		_, err = teams.Membership(ctx, team.ID, carol.ID)
		require.ErrorIs(t, err, model.ErrMembershipNotFound)
	})

	t.Run("deleting a team drops memberships", func(t *testing.T) {
		require.NoError(t, teams.Delete(ctx, team.ID))

		memberships, err := teams.TeamsForUser(ctx, alice.ID)
		require.NoError(t, err)
		require.Empty(t, memberships)
	})
}
