package service

import (
	"context"

	"github.com/rafaelguerrae/TeamSync/internal/model"
)

// UserStore is satisfied by repository.UserRepository and
// repository.MemoryUserRepository.
type UserStore interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Search(ctx context.Context, query string) ([]model.User, error)
	Update(ctx context.Context, u model.User) (model.User, error)
	Delete(ctx context.Context, id int64) error
}

type TeamStore interface {
	Create(ctx context.Context, t model.Team, creatorID int64) (model.Team, error)
	FindByID(ctx context.Context, id int64) (model.Team, error)
	FindByAlias(ctx context.Context, alias string) (model.Team, error)
	List(ctx context.Context) ([]model.Team, error)
	Update(ctx context.Context, t model.Team) (model.Team, error)
	Delete(ctx context.Context, id int64) error
	Members(ctx context.Context, teamID int64) ([]model.TeamMember, error)
	TeamsForUser(ctx context.Context, userID int64) ([]model.TeamMembership, error)
	Membership(ctx context.Context, teamID int64, userID int64) (model.Membership, error)
	AddMember(ctx context.Context, m model.Membership) (model.Membership, error)
	UpdateMemberRole(ctx context.Context, teamID int64, userID int64, role model.Role) (model.Membership, error)
	RemoveMember(ctx context.Context, teamID int64, userID int64) error
}
