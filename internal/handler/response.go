package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rafaelguerrae/TeamSync/internal/middleware"
	"github.com/rafaelguerrae/TeamSync/internal/model"
	"github.com/rafaelguerrae/TeamSync/pkg/apierror"
)

const maxBodyBytes = 1 << 20

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	failure := model.InternalFailure
	body := &failure

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	case errors.Is(err, model.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Invalid credentials"
	case errors.Is(err, model.ErrInvalidOrExpiredToken),
		errors.Is(err, model.ErrMissingRefreshCookie),
		errors.Is(err, model.ErrUnauthenticated):
		status = http.StatusUnauthorized
		rejected := model.SessionRejected
		body = &rejected
	case errors.Is(err, model.ErrForbidden):
		status = http.StatusForbidden
		body.Code = "FORBIDDEN"
		body.Message = "Access denied"
	case errors.Is(err, model.ErrUserNotFound):
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "User not found"
	case errors.Is(err, model.ErrTeamNotFound):
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Team not found"
	case errors.Is(err, model.ErrMembershipNotFound):
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Membership not found"
	case errors.Is(err, model.ErrDuplicateEmail):
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "A user with that email already exists"
	case errors.Is(err, model.ErrTeamAliasTaken):
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "A team with that alias already exists"
	case errors.Is(err, model.ErrAlreadyMember):
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "User is already a member of the team"
	case errors.Is(err, model.ErrInvalidInput):
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
		body.Details = err.Error()
	default:
		// Storage and signing failures stay out of the response body.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("request body is required", "")
		}
		return apierror.BadRequest("invalid JSON body", "")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest(name+" must be a positive integer", raw)
	}
	return id, nil
}

// actor returns the authenticated caller. Routes using it sit behind
// RequireAuth, so a miss means the router was wired wrong.
func actor(r *http.Request) (*model.AuthClaims, error) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return nil, model.ErrUnauthenticated
	}
	return claims, nil
}
