package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rafaelguerrae/TeamSync/internal/service"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(service *service.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// Activity lists the caller's own events, newest first.
func (h *AuditHandler) Activity(w http.ResponseWriter, r *http.Request) {
	claims, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	query := r.URL.Query()
	limit, _ := strconv.Atoi(strings.TrimSpace(query.Get("limit")))

	items, err := h.service.Query(service.AuditQuery{
		ActorID: claims.UserID,
		Type:    query.Get("type"),
		Limit:   limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items)
}
