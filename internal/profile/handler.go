package profile

import (
	"encoding/json"
	"net/http"

	"chatwire/internal/auth"
	"chatwire/internal/web"
	"chatwire/pkg/apperror"
)

type Handler struct {
	service *Service
	respond *web.Responder
}

func NewHandler(service *Service, respond *web.Responder) *Handler {
	return &Handler{service: service, respond: respond}
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.List(r.Context())
	if err != nil {
		h.respond.Error(w, err)
		return
	}
	if profiles == nil {
		profiles = []Profile{}
	}
	h.respond.JSON(w, http.StatusOK, profiles)
}

func (h *Handler) SyncProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.respond.Error(w, apperror.Unauthorized("missing principal"))
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.Error(w, apperror.InvalidArg("invalid request body"))
		return
	}

	p, err := h.service.Sync(r.Context(), principal, req)
	if err != nil {
		h.respond.Error(w, err)
		return
	}
	h.respond.JSON(w, http.StatusOK, p)
}
