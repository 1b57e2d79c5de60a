package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaelguerrae/TeamSync/internal/model"
)

const teamColumns = `id, alias, name, description, image, created_at`

type TeamRepository struct {
	pool *pgxpool.Pool
}

func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

func scanTeam(row pgx.Row) (model.Team, error) {
	var t model.Team
	err := row.Scan(&t.ID, &t.Alias, &t.Name, &t.Description, &t.Image, &t.CreatedAt)
	return t, err
}

// Create inserts the team and the creator's Administrator membership in one
// transaction.
func (r *TeamRepository) Create(ctx context.Context, t model.Team, creatorID int64) (model.Team, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Team{}, fmt.Errorf("begin create team: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	created, err := scanTeam(tx.QueryRow(ctx,
		`INSERT INTO teams (alias, name, description, image, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+teamColumns,
		t.Alias, t.Name, t.Description, t.Image, t.CreatedAt))
	if _, ok := constraintViolation(err, pgUniqueViolation); ok {
		return model.Team{}, model.ErrTeamAliasTaken
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("create team: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO user_on_team (user_id, team_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
		creatorID, created.ID, model.RoleAdministrator, created.CreatedAt)
	if _, ok := constraintViolation(err, pgForeignKeyViolation); ok {
		return model.Team{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("create creator membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Team{}, fmt.Errorf("commit create team: %w", err)
	}
	return created, nil
}

func (r *TeamRepository) FindByID(ctx context.Context, id int64) (model.Team, error) {
	t, err := scanTeam(r.pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Team{}, model.ErrTeamNotFound
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("find team by id: %w", err)
	}
	return t, nil
}

func (r *TeamRepository) FindByAlias(ctx context.Context, alias string) (model.Team, error) {
	t, err := scanTeam(r.pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE alias = $1`, alias))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Team{}, model.ErrTeamNotFound
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("find team by alias: %w", err)
	}
	return t, nil
}

func (r *TeamRepository) List(ctx context.Context) ([]model.Team, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]model.Team, 0)
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *TeamRepository) Update(ctx context.Context, t model.Team) (model.Team, error) {
	updated, err := scanTeam(r.pool.QueryRow(ctx,
		`UPDATE teams SET alias = $2, name = $3, description = $4, image = $5
		 WHERE id = $1
		 RETURNING `+teamColumns,
		t.ID, t.Alias, t.Name, t.Description, t.Image))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Team{}, model.ErrTeamNotFound
	}
	if _, ok := constraintViolation(err, pgUniqueViolation); ok {
		return model.Team{}, model.ErrTeamAliasTaken
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("update team: %w", err)
	}
	return updated, nil
}

func (r *TeamRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTeamNotFound
	}
	return nil
}

func (r *TeamRepository) Members(ctx context.Context, teamID int64) ([]model.TeamMember, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.role, m.joined_at, u.id, u.email, u.name, u.alias, u.image
		 FROM user_on_team m JOIN users u ON u.id = m.user_id
		 WHERE m.team_id = $1
		 ORDER BY m.joined_at, u.id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	members := make([]model.TeamMember, 0)
	for rows.Next() {
		var m model.TeamMember
		if err := rows.Scan(&m.Role, &m.JoinedAt, &m.User.ID, &m.User.Email, &m.User.Name, &m.User.Alias, &m.User.Image); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *TeamRepository) TeamsForUser(ctx context.Context, userID int64) ([]model.TeamMembership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.role, m.joined_at, t.id, t.alias, t.name, t.description, t.image, t.created_at
		 FROM user_on_team m JOIN teams t ON t.id = m.team_id
		 WHERE m.user_id = $1
		 ORDER BY m.joined_at, t.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user teams: %w", err)
	}
	defer rows.Close()

	memberships := make([]model.TeamMembership, 0)
	for rows.Next() {
		var m model.TeamMembership
		if err := rows.Scan(&m.Role, &m.JoinedAt, &m.Team.ID, &m.Team.Alias, &m.Team.Name, &m.Team.Description, &m.Team.Image, &m.Team.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user team: %w", err)
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *TeamRepository) Membership(ctx context.Context, teamID int64, userID int64) (model.Membership, error) {
	var m model.Membership
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, team_id, role, joined_at FROM user_on_team WHERE team_id = $1 AND user_id = $2`,
		teamID, userID).Scan(&m.UserID, &m.TeamID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Membership{}, model.ErrMembershipNotFound
	}
	if err != nil {
		return model.Membership{}, fmt.Errorf("find membership: %w", err)
	}
	return m, nil
}

func (r *TeamRepository) AddMember(ctx context.Context, m model.Membership) (model.Membership, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_on_team (user_id, team_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
		m.UserID, m.TeamID, m.Role, m.JoinedAt)
	if _, ok := constraintViolation(err, pgUniqueViolation); ok {
		return model.Membership{}, model.ErrAlreadyMember
	}
	if constraint, ok := constraintViolation(err, pgForeignKeyViolation); ok {
		if constraint == "user_on_team_team_id_fkey" {
			return model.Membership{}, model.ErrTeamNotFound
		}
		return model.Membership{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.Membership{}, fmt.Errorf("add team member: %w", err)
	}
	return m, nil
}

func (r *TeamRepository) UpdateMemberRole(ctx context.Context, teamID int64, userID int64, role model.Role) (model.Membership, error) {
	var m model.Membership
	err := r.pool.QueryRow(ctx,
		`UPDATE user_on_team SET role = $3 WHERE team_id = $1 AND user_id = $2
		 RETURNING user_id, team_id, role, joined_at`,
		teamID, userID, role).Scan(&m.UserID, &m.TeamID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Membership{}, model.ErrMembershipNotFound
	}
	if err != nil {
		return model.Membership{}, fmt.Errorf("update member role: %w", err)
	}
	return m, nil
}

func (r *TeamRepository) RemoveMember(ctx context.Context, teamID int64, userID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_on_team WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrMembershipNotFound
	}
	return nil
}
