package handler

import (
	"net/http"

	"bookline/internal/bookings/service"
	"bookline/pkg/auth"
	apperrors "bookline/pkg/errors"
	httputil "bookline/pkg/http"
	"bookline/pkg/logger"
	"bookline/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AppointmentHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewAppointmentHandler(service service.BookingService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		log:     log,
	}
}

func (h *AppointmentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AppointmentHandler) principal(w http.ResponseWriter, r *http.Request, handler string) (*auth.Principal, bool) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, handler, apperrors.Unauthorized("Authentication required"))
	}
	return p, ok
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.principal(w, r, "Create")
	if !ok {
		return
	}

	var req model.AppointmentRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	appointment, err := h.service.CreateBooking(r.Context(), &req, actor)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, appointment); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *AppointmentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.principal(w, r, "GetByID")
	if !ok {
		return
	}

	appointment, err := h.service.GetByID(r.Context(), ps.ByName("id"), actor)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.principal(w, r, "List")
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	query := r.URL.Query()
	filter := model.AppointmentFilter{
		CompanyID:  query.Get("company_id"),
		StaffID:    query.Get("staff_id"),
		CustomerID: query.Get("customer_id"),
		Date:       query.Get("date"),
		Status:     model.AppointmentStatus(query.Get("status")),
	}

	appointments, total, err := h.service.List(r.Context(), filter, limit, offset, actor)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, appointments, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.principal(w, r, "UpdateStatus")
	if !ok {
		return
	}

	var update model.StatusUpdate
	if err := httputil.DecodeBody(r, &update); err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	appointment, err := h.service.UpdateStatus(r.Context(), ps.ByName("id"), &update, actor)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.principal(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), ps.ByName("id"), actor); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

type claimResponse struct {
	Linked []string `json:"linked"`
	Count  int      `json:"count"`
}

func (h *AppointmentHandler) ClaimGuestBookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.principal(w, r, "ClaimGuestBookings")
	if !ok {
		return
	}

	linked, err := h.service.ClaimGuestBookings(r.Context(), ps.ByName("id"), actor)
	if err != nil {
		h.writeError(w, "ClaimGuestBookings", err)
		return
	}

	if err := httputil.WriteSuccess(w, claimResponse{Linked: linked, Count: len(linked)}); err != nil {
		h.log.Error("failed to write success response", "handler", "ClaimGuestBookings", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/appointments", h.Create)
	router.GET("/api/v1/appointments", h.List)
	router.GET("/api/v1/appointments/id/:id", h.GetByID)
	router.PATCH("/api/v1/appointments/id/:id/status", h.UpdateStatus)
	router.DELETE("/api/v1/appointments/id/:id", h.Delete)
	router.POST("/api/v1/customers/id/:id/claim-guest-bookings", h.ClaimGuestBookings)
}
