package model

type SignUpRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Alias    string `json:"alias"`
	Password string `json:"password"`
	Image    string `json:"image"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Name     *string `json:"name,omitempty"`
	Alias    *string `json:"alias,omitempty"`
	Image    *string `json:"image,omitempty"`
	Password *string `json:"password,omitempty"`
}

type CreateTeamRequest struct {
	Name        string `json:"name"`
	Alias       string `json:"alias"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type UpdateTeamRequest struct {
	Name        *string `json:"name,omitempty"`
	Alias       *string `json:"alias,omitempty"`
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
}

type MemberRequest struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}
