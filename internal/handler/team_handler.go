package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rafaelguerrae/TeamSync/internal/model"
	"github.com/rafaelguerrae/TeamSync/internal/service"
)

type TeamHandler struct {
	service *service.TeamService
}

func NewTeamHandler(service *service.TeamService) *TeamHandler {
	return &TeamHandler{service: service}
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.CreateTeamRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	team, err := h.service.Create(r.Context(), claims.UserID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, team)
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, teams)
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	team, err := h.service.Get(r.Context(), claims.UserID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, team)
}

func (h *TeamHandler) GetByAlias(w http.ResponseWriter, r *http.Request) {
	claims, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	team, err := h.service.GetByAlias(r.Context(), claims.UserID, chi.URLParam(r, "alias"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, team)
}

func (h *TeamHandler) Members(w http.ResponseWriter, r *http.Request) {
	claims, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	members, err := h.service.Members(r.Context(), claims.UserID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, members)
}

func (h *TeamHandler) MembersByAlias(w http.ResponseWriter, r *http.Request) {
	claims, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	members, err := h.service.MembersByAlias(r.Context(), claims.UserID, chi.URLParam(r, "alias"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, members)
}

func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.UpdateTeamRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	team, err := h.service.Update(r.Context(), claims.UserID, id, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, team)
}

func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), claims.UserID, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	h.writeMembership(w, r, http.StatusCreated, h.service.AddMember)
}

func (h *TeamHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	h.writeMembership(w, r, http.StatusOK, h.service.UpdateMember)
}

type membershipOp func(ctx context.Context, actorID int64, teamID int64, req model.MemberRequest) (model.Membership, error)

func (h *TeamHandler) writeMembership(w http.ResponseWriter, r *http.Request, status int, op membershipOp) {
	claims, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	teamID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.MemberRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	membership, err := op(r.Context(), claims.UserID, teamID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, status, membership)
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	claims, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	teamID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.RemoveMember(r.Context(), claims.UserID, teamID, userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
