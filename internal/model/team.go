package model

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleMember        Role = "Member"
	RoleAdministrator Role = "Administrator"
)

var roleRank = map[Role]int{
	RoleMember:        1,
	RoleAdministrator: 2,
}

// ParseRole accepts role names case-insensitively and returns the canonical form.
func ParseRole(raw string) (Role, error) {
	trimmed := strings.TrimSpace(raw)
	for role := range roleRank {
		if strings.EqualFold(string(role), trimmed) {
			return role, nil
		}
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants every permission of required.
func (r Role) AtLeast(required Role) bool {
	return r.Valid() && roleRank[r] >= roleRank[required]
}

type Team struct {
	ID          int64     `json:"id"`
	Alias       string    `json:"alias"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Membership struct {
	UserID   int64     `json:"userId"`
	TeamID   int64     `json:"teamId"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type TeamMember struct {
	Role     Role       `json:"role"`
	JoinedAt time.Time  `json:"joinedAt"`
	User     PublicUser `json:"user"`
}

type TeamMembership struct {
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
	Team     Team      `json:"team"`
}
