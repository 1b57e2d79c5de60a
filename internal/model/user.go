package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Alias        string    `json:"alias"`
	Image        string    `json:"image"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the only user projection that leaves the service layer.
type PublicUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Alias string `json:"alias"`
	Image string `json:"image"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name, Alias: u.Alias, Image: u.Image}
}

type AuthClaims struct {
	UserID  int64
	Email   string
	TokenID string
}

// Session is the result of a successful sign-in or refresh. RefreshToken is
// handed to the transport layer for the cookie and is never serialized.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             *PublicUser
}

type SignInResponse struct {
	AccessToken string     `json:"accessToken"`
	User        PublicUser `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}
