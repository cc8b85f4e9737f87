package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

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

type ensureRequest struct {
	TargetUserID string `json:"targetUserId"`
}

type groupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

type sendRequest struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	// ConnectionID identifies the sender's websocket so the room
	// broadcast can skip the connection that already has the message
	// from this response.
	ConnectionID string `json:"connectionId"`
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.respond.Error(w, apperror.Unauthorized("missing principal"))
		return
	}

	views, err := h.service.ListForUser(r.Context(), principal.UserID)
	if err != nil {
		h.respond.Error(w, err)
		return
	}
	if views == nil {
		views = []ConversationView{}
	}
	h.respond.JSON(w, http.StatusOK, views)
}

func (h *Handler) EnsureConversation(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.respond.Error(w, apperror.Unauthorized("missing principal"))
		return
	}

	var req ensureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.Error(w, apperror.InvalidArg("invalid request body"))
		return
	}

	view, err := h.service.EnsureDirect(r.Context(), principal.UserID, req.TargetUserID)
	if err != nil {
		h.respond.Error(w, err)
		return
	}
	h.respond.JSON(w, http.StatusCreated, view)
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.respond.Error(w, apperror.Unauthorized("missing principal"))
		return
	}

	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.Error(w, apperror.InvalidArg("invalid request body"))
		return
	}

	view, err := h.service.CreateGroup(r.Context(), principal.UserID, req.Name, req.MemberIDs)
	if err != nil {
		h.respond.Error(w, err)
		return
	}
	h.respond.JSON(w, http.StatusCreated, view)
}

func (h *Handler) GetConversationDetail(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.respond.Error(w, apperror.Unauthorized("missing principal"))
		return
	}

	view, err := h.service.GetDetail(r.Context(), chi.URLParam(r, "conversationID"), principal.UserID)
	if err != nil {
		h.respond.Error(w, err)
		return
	}
	h.respond.JSON(w, http.StatusOK, view)
}

func (h *Handler) ResetUnread(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.respond.Error(w, apperror.Unauthorized("missing principal"))
		return
	}

	view, err := h.service.ResetUnread(r.Context(), chi.URLParam(r, "conversationID"), principal.UserID)
	if err != nil {
		h.respond.Error(w, err)
		return
	}
	h.respond.JSON(w, http.StatusOK, view)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.respond.Error(w, apperror.Unauthorized("missing principal"))
		return
	}

	views, err := h.service.ListMessages(r.Context(), chi.URLParam(r, "conversationID"), principal.UserID)
	if err != nil {
		h.respond.Error(w, err)
		return
	}
	if views == nil {
		views = []MessageView{}
	}
	h.respond.JSON(w, http.StatusOK, views)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.respond.Error(w, apperror.Unauthorized("missing principal"))
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond.Error(w, apperror.InvalidArg("invalid request body"))
		return
	}
	if req.ConversationID == "" {
		h.respond.Error(w, apperror.InvalidArg("conversationId required"))
		return
	}

	view, err := h.service.SendMessage(r.Context(), principal.UserID, req.ConversationID, req.Text, req.ConnectionID)
	if err != nil {
		h.respond.Error(w, err)
		return
	}
	h.respond.JSON(w, http.StatusCreated, view)
}

func (h *Handler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.respond.Error(w, apperror.Unauthorized("missing principal"))
		return
	}

	view, err := h.service.MarkSeen(r.Context(), principal.UserID, chi.URLParam(r, "messageID"))
	if err != nil {
		h.respond.Error(w, err)
		return
	}
	h.respond.JSON(w, http.StatusOK, view)
}
