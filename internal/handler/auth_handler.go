package handler

import (
	"net/http"

	"github.com/rafaelguerrae/TeamSync/internal/model"
	"github.com/rafaelguerrae/TeamSync/internal/service"
)

type AuthHandler struct {
	service *service.AuthService
	cookie  RefreshCookie
}

func NewAuthHandler(service *service.AuthService, cookie RefreshCookie) *AuthHandler {
	return &AuthHandler{service: service, cookie: cookie}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var payload model.SignUpRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.SignUp(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var payload model.SignInRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.service.SignIn(r.Context(), payload, r.UserAgent())
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookie.Set(w, session.RefreshToken, session.RefreshExpiresAt)
	writeSuccess(w, http.StatusOK, model.SignInResponse{
		AccessToken: session.AccessToken,
		User:        *session.User,
	})
}

// Refresh reads only the cookie; any request body is ignored.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Refresh(r.Context(), h.cookie.Read(r))
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookie.Set(w, session.RefreshToken, session.RefreshExpiresAt)
	writeSuccess(w, http.StatusOK, model.RefreshResponse{AccessToken: session.AccessToken})
}

// SignOut always succeeds and always clears the cookie.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.service.SignOut(r.Context(), h.cookie.Read(r))
	h.cookie.Clear(w)
	writeSuccess(w, http.StatusOK, map[string]bool{"signedOut": true})
}
