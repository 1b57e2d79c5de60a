package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rafaelguerrae/TeamSync/internal/event"
	"github.com/rafaelguerrae/TeamSync/internal/model"
	"github.com/rafaelguerrae/TeamSync/pkg/apierror"
)

type TeamService struct {
	teams TeamStore
	bus   event.Bus
	now   func() time.Time
}

func NewTeamService(teams TeamStore, bus event.Bus) *TeamService {
	if bus == nil {
		bus = event.Nop{}
	}
	return &TeamService{teams: teams, bus: bus, now: time.Now}
}

// Create stores the team and makes the creator its Administrator.
func (s *TeamService) Create(ctx context.Context, actorID int64, req model.CreateTeamRequest) (model.Team, error) {
	name, err := requireField("name", req.Name)
	if err != nil {
		return model.Team{}, err
	}
	alias, err := requireAlias(req.Alias)
	if err != nil {
		return model.Team{}, err
	}

	team, err := s.teams.Create(ctx, model.Team{
		Alias:       alias,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Image:       strings.TrimSpace(req.Image),
		CreatedAt:   s.now().UTC(),
	}, actorID)
	if err != nil {
		return model.Team{}, err
	}

	s.bus.Publish(event.New(event.TypeTeamCreated, actorID, map[string]any{"teamId": team.ID, "alias": team.Alias}))
	return team, nil
}

func (s *TeamService) List(ctx context.Context) ([]model.Team, error) {
	return s.teams.List(ctx)
}

func (s *TeamService) Get(ctx context.Context, actorID int64, id int64) (model.Team, error) {
	team, err := s.teams.FindByID(ctx, id)
	if err != nil {
		return model.Team{}, err
	}
	if err := s.requireRole(ctx, team.ID, actorID, model.RoleMember); err != nil {
		return model.Team{}, err
	}
	return team, nil
}

func (s *TeamService) GetByAlias(ctx context.Context, actorID int64, alias string) (model.Team, error) {
	team, err := s.teams.FindByAlias(ctx, strings.ToLower(strings.TrimSpace(alias)))
	if err != nil {
		return model.Team{}, err
	}
	if err := s.requireRole(ctx, team.ID, actorID, model.RoleMember); err != nil {
		return model.Team{}, err
	}
	return team, nil
}

func (s *TeamService) Members(ctx context.Context, actorID int64, id int64) ([]model.TeamMember, error) {
	team, err := s.Get(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	return s.teams.Members(ctx, team.ID)
}

func (s *TeamService) MembersByAlias(ctx context.Context, actorID int64, alias string) ([]model.TeamMember, error) {
	team, err := s.GetByAlias(ctx, actorID, alias)
	if err != nil {
		return nil, err
	}
	return s.teams.Members(ctx, team.ID)
}

// Update applies the non-nil fields of req. Any member may edit the team.
func (s *TeamService) Update(ctx context.Context, actorID int64, id int64, req model.UpdateTeamRequest) (model.Team, error) {
	team, err := s.Get(ctx, actorID, id)
	if err != nil {
		return model.Team{}, err
	}

	if req.Name != nil {
		if team.Name, err = requireField("name", *req.Name); err != nil {
			return model.Team{}, err
		}
	}
	if req.Alias != nil {
		if team.Alias, err = requireAlias(*req.Alias); err != nil {
			return model.Team{}, err
		}
	}
	if req.Description != nil {
		team.Description = strings.TrimSpace(*req.Description)
	}
	if req.Image != nil {
		team.Image = strings.TrimSpace(*req.Image)
	}

	return s.teams.Update(ctx, team)
}

func (s *TeamService) Delete(ctx context.Context, actorID int64, id int64) error {
	if _, err := s.teams.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.requireRole(ctx, id, actorID, model.RoleAdministrator); err != nil {
		return err
	}
	if err := s.teams.Delete(ctx, id); err != nil {
		return err
	}

	s.bus.Publish(event.New(event.TypeTeamDeleted, actorID, map[string]any{"teamId": id}))
	return nil
}

// AddMember requires the caller to administer the team. An empty role means
// Member.
func (s *TeamService) AddMember(ctx context.Context, actorID int64, teamID int64, req model.MemberRequest) (model.Membership, error) {
	if req.UserID <= 0 {
		return model.Membership{}, apierror.BadRequest("userId must be a positive integer", "")
	}
	role := model.RoleMember
	if strings.TrimSpace(req.Role) != "" {
		parsed, err := model.ParseRole(req.Role)
		if err != nil {
			return model.Membership{}, err
		}
		role = parsed
	}

	if _, err := s.teams.FindByID(ctx, teamID); err != nil {
		return model.Membership{}, err
	}
	if err := s.requireRole(ctx, teamID, actorID, model.RoleAdministrator); err != nil {
		return model.Membership{}, err
	}

	membership, err := s.teams.AddMember(ctx, model.Membership{
		UserID:   req.UserID,
		TeamID:   teamID,
		Role:     role,
		JoinedAt: s.now().UTC(),
	})
	if err != nil {
		return model.Membership{}, err
	}

	s.publishMembership(event.TypeMembershipAdded, actorID, membership)
	return membership, nil
}

func (s *TeamService) UpdateMember(ctx context.Context, actorID int64, teamID int64, req model.MemberRequest) (model.Membership, error) {
	if req.UserID <= 0 {
		return model.Membership{}, apierror.BadRequest("userId must be a positive integer", "")
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return model.Membership{}, err
	}

	if _, err := s.teams.FindByID(ctx, teamID); err != nil {
		return model.Membership{}, err
	}
	if err := s.requireRole(ctx, teamID, actorID, model.RoleAdministrator); err != nil {
		return model.Membership{}, err
	}

	membership, err := s.teams.UpdateMemberRole(ctx, teamID, req.UserID, role)
	if err != nil {
		return model.Membership{}, err
	}

	s.publishMembership(event.TypeMembershipUpdated, actorID, membership)
	return membership, nil
}

// RemoveMember lets an Administrator remove anyone and a member remove
// themself.
func (s *TeamService) RemoveMember(ctx context.Context, actorID int64, teamID int64, userID int64) error {
	if _, err := s.teams.FindByID(ctx, teamID); err != nil {
		return err
	}
	if actorID != userID {
		if err := s.requireRole(ctx, teamID, actorID, model.RoleAdministrator); err != nil {
			return err
		}
	}

	if err := s.teams.RemoveMember(ctx, teamID, userID); err != nil {
		return err
	}

	s.publishMembership(event.TypeMembershipRemoved, actorID, model.Membership{UserID: userID, TeamID: teamID})
	return nil
}

func (s *TeamService) requireRole(ctx context.Context, teamID int64, userID int64, required model.Role) error {
	membership, err := s.teams.Membership(ctx, teamID, userID)
	if errors.Is(err, model.ErrMembershipNotFound) {
		return model.ErrForbidden
	}
	if err != nil {
		return err
	}
	if !membership.Role.AtLeast(required) {
		return model.ErrForbidden
	}
	return nil
}

func (s *TeamService) publishMembership(typ event.Type, actorID int64, m model.Membership) {
	payload := map[string]any{"teamId": m.TeamID, "userId": m.UserID}
	if m.Role != "" {
		payload["role"] = string(m.Role)
	}
	s.bus.Publish(event.New(typ, actorID, payload))
}
