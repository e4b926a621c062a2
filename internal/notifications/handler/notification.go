package handler

import (
	"net/http"

	"bookline/internal/notifications/service"
	"bookline/pkg/auth"
	apperrors "bookline/pkg/errors"
	httputil "bookline/pkg/http"
	"bookline/pkg/logger"
	"bookline/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type NotificationHandler struct {
	service service.NotificationService
	log     *logger.Logger
}

func NewNotificationHandler(service service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		log:     log,
	}
}

func (h *NotificationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *NotificationHandler) principal(w http.ResponseWriter, r *http.Request, handler string) (*auth.Principal, bool) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, handler, apperrors.Unauthorized("Authentication required"))
	}
	return p, ok
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.principal(w, r, "List")
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	notifications, total, err := h.service.ListForUser(r.Context(), actor.UserID, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, notifications, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

type unreadCountResponse struct {
	Count int64 `json:"count"`
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.principal(w, r, "UnreadCount")
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(r.Context(), actor.UserID)
	if err != nil {
		h.writeError(w, "UnreadCount", err)
		return
	}

	if err := httputil.WriteSuccess(w, unreadCountResponse{Count: count}); err != nil {
		h.log.Error("failed to write success response", "handler", "UnreadCount", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.principal(w, r, "MarkAsRead")
	if !ok {
		return
	}

	notification, err := h.service.MarkAsRead(r.Context(), actor.UserID, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "MarkAsRead", err)
		return
	}

	if err := httputil.WriteSuccess(w, notification); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkAsRead", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.principal(w, r, "Broadcast")
	if !ok {
		return
	}

	var req model.BroadcastRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		h.writeError(w, "Broadcast", err)
		return
	}

	notification, err := h.service.Broadcast(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "Broadcast", err)
		return
	}

	if err := httputil.WriteCreated(w, notification); err != nil {
		h.log.Error("failed to write created response", "handler", "Broadcast", "operation", "WriteCreated", "error", err)
	}
}

func (h *NotificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/notifications", h.List)
	router.GET("/api/v1/notifications/unread-count", h.UnreadCount)
	router.PATCH("/api/v1/notifications/id/:id/read", h.MarkAsRead)
	router.POST("/api/v1/notifications/broadcast", h.Broadcast)
}
