package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/rafaelguerrae/TeamSync/internal/model"
)

type membershipKey struct {
	teamID int64
	userID int64
}

// MemoryStore keeps users, teams and memberships in process memory with the
// same constraint semantics as the postgres schema: unique user email, unique team alias,
// and memberships cascading away with their user or team.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[int64]model.User
	teams       map[int64]model.Team
	memberships map[membershipKey]model.Membership
	nextUserID  int64
	nextTeamID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       map[int64]model.User{},
		teams:       map[int64]model.Team{},
		memberships: map[membershipKey]model.Membership{},
	}
}

func (s *MemoryStore) Users() *MemoryUserRepository {
	return &MemoryUserRepository{store: s}
}

func (s *MemoryStore) Teams() *MemoryTeamRepository {
	return &MemoryTeamRepository{store: s}
}

type MemoryUserRepository struct {
	store *MemoryStore
}

func (r *MemoryUserRepository) emailTakenLocked(email string, exceptID int64) bool {
	for _, u := range r.store.users {
		if u.ID != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func (r *MemoryUserRepository) Create(_ context.Context, u model.User) (model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.emailTakenLocked(u.Email, 0) {
		return model.User{}, model.ErrDuplicateEmail
	}

	r.store.nextUserID++
	u.ID = r.store.nextUserID
	r.store.users[u.ID] = u
	return u, nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id int64) (model.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (model.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (r *MemoryUserRepository) List(ctx context.Context) ([]model.User, error) {
	return r.Search(ctx, "")
}

func (r *MemoryUserRepository) Search(_ context.Context, query string) ([]model.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	needle := strings.ToLower(query)
	users := make([]model.User, 0, len(r.store.users))
	for _, u := range r.store.users {
		if needle == "" ||
			strings.Contains(strings.ToLower(u.Email), needle) ||
			strings.Contains(strings.ToLower(u.Name), needle) ||
			strings.Contains(strings.ToLower(u.Alias), needle) {
			users = append(users, u)
		}
	}
	slices.SortFunc(users, func(a, b model.User) int { return cmp.Compare(a.ID, b.ID) })
	return users, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, u model.User) (model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.users[u.ID]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	if r.emailTakenLocked(u.Email, u.ID) {
		return model.User{}, model.ErrDuplicateEmail
	}

	u.CreatedAt = existing.CreatedAt
	r.store.users[u.ID] = u
	return u, nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(r.store.users, id)
	for key := range r.store.memberships {
		if key.userID == id {
			delete(r.store.memberships, key)
		}
	}
	return nil
}

type MemoryTeamRepository struct {
	store *MemoryStore
}

func (r *MemoryTeamRepository) aliasTakenLocked(alias string, exceptID int64) bool {
	for _, t := range r.store.teams {
		if t.ID != exceptID && t.Alias == alias {
			return true
		}
	}
	return false
}

func (r *MemoryTeamRepository) Create(_ context.Context, t model.Team, creatorID int64) (model.Team, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.aliasTakenLocked(t.Alias, 0) {
		return model.Team{}, model.ErrTeamAliasTaken
	}
	if _, ok := r.store.users[creatorID]; !ok {
		return model.Team{}, model.ErrUserNotFound
	}

	r.store.nextTeamID++
	t.ID = r.store.nextTeamID
	r.store.teams[t.ID] = t
	r.store.memberships[membershipKey{teamID: t.ID, userID: creatorID}] = model.Membership{
		UserID:   creatorID,
		TeamID:   t.ID,
		Role:     model.RoleAdministrator,
		JoinedAt: t.CreatedAt,
	}
	return t, nil
}

func (r *MemoryTeamRepository) FindByID(_ context.Context, id int64) (model.Team, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	t, ok := r.store.teams[id]
	if !ok {
		return model.Team{}, model.ErrTeamNotFound
	}
	return t, nil
}

func (r *MemoryTeamRepository) FindByAlias(_ context.Context, alias string) (model.Team, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, t := range r.store.teams {
		if t.Alias == alias {
			return t, nil
		}
	}
	return model.Team{}, model.ErrTeamNotFound
}

func (r *MemoryTeamRepository) List(_ context.Context) ([]model.Team, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	teams := make([]model.Team, 0, len(r.store.teams))
	for _, t := range r.store.teams {
		teams = append(teams, t)
	}
	slices.SortFunc(teams, func(a, b model.Team) int { return cmp.Compare(a.ID, b.ID) })
	return teams, nil
}

func (r *MemoryTeamRepository) Update(_ context.Context, t model.Team) (model.Team, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.teams[t.ID]
	if !ok {
		return model.Team{}, model.ErrTeamNotFound
	}
	if r.aliasTakenLocked(t.Alias, t.ID) {
		return model.Team{}, model.ErrTeamAliasTaken
	}

	t.CreatedAt = existing.CreatedAt
	r.store.teams[t.ID] = t
	return t, nil
}

func (r *MemoryTeamRepository) Delete(_ context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.teams[id]; !ok {
		return model.ErrTeamNotFound
	}
	delete(r.store.teams, id)
	for key := range r.store.memberships {
		if key.teamID == id {
			delete(r.store.memberships, key)
		}
	}
	return nil
}

func (r *MemoryTeamRepository) Members(_ context.Context, teamID int64) ([]model.TeamMember, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	members := make([]model.TeamMember, 0)
	for key, m := range r.store.memberships {
		if key.teamID != teamID {
			continue
		}
		members = append(members, model.TeamMember{
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
			User:     r.store.users[key.userID].Public(),
		})
	}
	slices.SortFunc(members, func(a, b model.TeamMember) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.User.ID, b.User.ID)
	})
	return members, nil
}

func (r *MemoryTeamRepository) TeamsForUser(_ context.Context, userID int64) ([]model.TeamMembership, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	memberships := make([]model.TeamMembership, 0)
	for key, m := range r.store.memberships {
		if key.userID != userID {
			continue
		}
		memberships = append(memberships, model.TeamMembership{
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
			Team:     r.store.teams[key.teamID],
		})
	}
	slices.SortFunc(memberships, func(a, b model.TeamMembership) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Team.ID, b.Team.ID)
	})
	return memberships, nil
}

func (r *MemoryTeamRepository) Membership(_ context.Context, teamID int64, userID int64) (model.Membership, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	m, ok := r.store.memberships[membershipKey{teamID: teamID, userID: userID}]
	if !ok {
		return model.Membership{}, model.ErrMembershipNotFound
	}
	return m, nil
}

func (r *MemoryTeamRepository) AddMember(_ context.Context, m model.Membership) (model.Membership, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.teams[m.TeamID]; !ok {
		return model.Membership{}, model.ErrTeamNotFound
	}
	if _, ok := r.store.users[m.UserID]; !ok {
		return model.Membership{}, model.ErrUserNotFound
	}
	key := membershipKey{teamID: m.TeamID, userID: m.UserID}
	if _, ok := r.store.memberships[key]; ok {
		return model.Membership{}, model.ErrAlreadyMember
	}

	r.store.memberships[key] = m
	return m, nil
}

func (r *MemoryTeamRepository) UpdateMemberRole(_ context.Context, teamID int64, userID int64, role model.Role) (model.Membership, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := membershipKey{teamID: teamID, userID: userID}
	m, ok := r.store.memberships[key]
	if !ok {
		return model.Membership{}, model.ErrMembershipNotFound
	}
	m.Role = role
	r.store.memberships[key] = m
	return m, nil
}

func (r *MemoryTeamRepository) RemoveMember(_ context.Context, teamID int64, userID int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := membershipKey{teamID: teamID, userID: userID}
	if _, ok := r.store.memberships[key]; !ok {
		return model.ErrMembershipNotFound
	}
	delete(r.store.memberships, key)
	return nil
}
