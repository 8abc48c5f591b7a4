package api

import (
	"net/http"
	"strings"

	"github.com/fau-events/internal/model"
)

// Register godoc
// @Summary Register for an event
// @Description Public registration. Errors carry a stable reason: "already registered", "capacity" (with available), "cancelled".
// @Tags Registrations
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Registration"
// @Success 201 {object} model.Registration
// @Failure 400 {object} map[string]interface{} "Validation, duplicate, capacity or cancelled"
// @Failure 404 {object} map[string]string "Event not found"
// @Router /registrations [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reg, err := h.engine.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, reg)
}

// ListRegistrations godoc
// @Summary List registrations for an event
// @Tags Registrations
// @Produce json
// @Security CookieAuth
// @Param eventId query string true "Event ID"
// @Success 200 {array} model.Registration
// @Failure 400 {object} map[string]string "Missing eventId"
// @Failure 404 {object} map[string]string "Event not found"
// @Router /secure-registrations [get]
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(r.URL.Query().Get("eventId"))
	if eventID == "" {
		respondError(w, http.StatusBadRequest, "eventId query parameter is required")
		return
	}

	regs, err := h.engine.ListRegistrations(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, regs)
}

// DeleteRegistration godoc
// @Summary Remove a registration
// @Description Deletes the registration and returns its places to the event
// @Tags Registrations
// @Produce json
// @Security CookieAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Registration not found"
// @Router /secure-registrations/{id} [delete]
func (h *Handler) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.engine.Unregister(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "registration deleted",
		"eventId":       deleted.EventID,
		"attendeeCount": deleted.AttendeeCount,
	})
}
