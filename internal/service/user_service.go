package service

import (
	"context"
	"strings"
	"time"

	"github.com/rafaelguerrae/TeamSync/internal/auth"
	"github.com/rafaelguerrae/TeamSync/internal/model"
)

type UserService struct {
	users UserStore
	teams TeamStore
	now   func() time.Time
}

func NewUserService(users UserStore, teams TeamStore) *UserService {
	return &UserService{users: users, teams: teams, now: time.Now}
}

func (s *UserService) Get(ctx context.Context, id int64) (model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

func (s *UserService) List(ctx context.Context) ([]model.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return publicUsers(users), nil
}

// Search matches query against email, name and alias. An empty query lists
// every user.
func (s *UserService) Search(ctx context.Context, query string) ([]model.PublicUser, error) {
	users, err := s.users.Search(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	return publicUsers(users), nil
}

// Update applies the non-nil fields of req. Callers may only edit themselves.
func (s *UserService) Update(ctx context.Context, actorID int64, id int64, req model.UpdateUserRequest) (model.PublicUser, error) {
	if actorID != id {
		return model.PublicUser{}, model.ErrForbidden
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, err
	}

	if req.Email != nil {
		if user.Email, err = normalizeEmail(*req.Email); err != nil {
			return model.PublicUser{}, err
		}
	}
	if req.Name != nil {
		if user.Name, err = requireField("name", *req.Name); err != nil {
			return model.PublicUser{}, err
		}
	}
	if req.Alias != nil {
		if user.Alias, err = requireAlias(*req.Alias); err != nil {
			return model.PublicUser{}, err
		}
	}
	if req.Image != nil {
		user.Image = strings.TrimSpace(*req.Image)
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return model.PublicUser{}, err
		}
		if user.PasswordHash, err = auth.HashPassword(*req.Password); err != nil {
			return model.PublicUser{}, err
		}
	}

	user.UpdatedAt = s.now().UTC()
	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return model.PublicUser{}, err
	}
	return updated.Public(), nil
}

func (s *UserService) Delete(ctx context.Context, actorID int64, id int64) error {
	if actorID != id {
		return model.ErrForbidden
	}
	return s.users.Delete(ctx, id)
}

func (s *UserService) Teams(ctx context.Context, id int64) ([]model.TeamMembership, error) {
	if _, err := s.users.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.teams.TeamsForUser(ctx, id)
}

func publicUsers(users []model.User) []model.PublicUser {
	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}
