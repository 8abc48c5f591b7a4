package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/fau-events/internal/model"
)

var eventTypes = []interface{}{
	model.EventTypeMeeting, model.EventTypeEvent, model.EventTypeVolunteer, model.EventTypePhoto, model.EventTypeOther,
}

func validateCreateEvent(req *model.CreateEventRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Description, validation.Length(0, 5000)),
		validation.Field(&req.Date, validation.Required, validation.Date(model.DateLayout)),
		validation.Field(&req.Time, validation.Required, validation.Date(model.TimeLayout)),
		validation.Field(&req.Location, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.CustomLocation, validation.Length(0, 200)),
		validation.Field(&req.MaxAttendees, validation.Min(1)),
		validation.Field(&req.Type, validation.In(eventTypes...)),
	)
	if err != nil {
		return err
	}
	if req.MaxAttendees != nil && *req.MaxAttendees < 1 {
		return validation.Errors{"maxAttendees": errors.New("must be at least 1 or omitted for no limit")}
	}
	if strings.EqualFold(strings.TrimSpace(req.Location), model.LocationOther) &&
		(req.CustomLocation == nil || strings.TrimSpace(*req.CustomLocation) == "") {
		return validation.Errors{"customLocation": errors.New("is required when location is Other")}
	}
	return nil
}

func validateUpdateEvent(req *model.UpdateEventRequest) error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return validation.Errors{"title": errors.New("cannot be blank")}
	}
	if req.Location != nil && strings.TrimSpace(*req.Location) == "" {
		return validation.Errors{"location": errors.New("cannot be blank")}
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Length(1, 200)),
		validation.Field(&req.Description, validation.Length(0, 5000)),
		validation.Field(&req.Date, validation.Date(model.DateLayout)),
		validation.Field(&req.Time, validation.Date(model.TimeLayout)),
		validation.Field(&req.Location, validation.Length(1, 200)),
		validation.Field(&req.CustomLocation, validation.Length(0, 200)),
		validation.Field(&req.MaxAttendees, validation.Min(0)),
		validation.Field(&req.Type, validation.In(eventTypes...)),
	)
}

// normalizeClock rewrites a validated time as zero-padded HH:MM so that
// text ordering in the events table matches clock order.
func normalizeClock(v string) string {
	t, err := time.Parse(model.TimeLayout, v)
	if err != nil {
		return v
	}
	return t.Format(model.TimeLayout)
}

func eventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "id query parameter is required")
		return "", false
	}
	return id, true
}

// GetEvents godoc
// @Summary List events
// @Description Public list of active and cancelled events ordered by date and time, or one event when id is given
// @Tags Events
// @Produce json
// @Param id query string false "Event ID"
// @Success 200 {array} model.Event
// @Failure 404 {object} map[string]string "Event not found"
// @Router /events [get]
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
		event, err := h.events.FindByID(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, event)
		return
	}

	events, err := h.events.ListPublic(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// CreateEvent godoc
// @Summary Create an event
// @Description Attendee count starts at zero and status at active regardless of input
// @Tags Events
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body model.CreateEventRequest true "Event"
// @Success 201 {object} model.Event
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /events [post]
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Type == "" {
		req.Type = model.EventTypeEvent
	}
	if err := validateCreateEvent(&req); err != nil {
		writeDomainError(w, r, &model.ValidationError{Err: err})
		return
	}
	req.Time = normalizeClock(req.Time)

	event, err := h.events.Create(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	zap.L().Info("event created", zap.String("event_id", event.ID), zap.String("title", event.Title))
	respondJSON(w, http.StatusCreated, event)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Partial update. maxAttendees 0 removes the limit. Attendee counts and status cannot be changed here.
// @Tags Events
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id query string true "Event ID"
// @Param request body model.UpdateEventRequest true "Fields to change"
// @Success 200 {object} model.Event
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "Event not found"
// @Router /events [put]
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	var req model.UpdateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateUpdateEvent(&req); err != nil {
		writeDomainError(w, r, &model.ValidationError{Err: err})
		return
	}
	if req.Time != nil {
		clock := normalizeClock(*req.Time)
		req.Time = &clock
	}

	event, err := h.events.Update(r.Context(), id, &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// PatchEvent godoc
// @Summary Cancel an event
// @Description With action=cancel, marks the event cancelled and notifies every registrant in the background
// @Tags Events
// @Produce json
// @Security CookieAuth
// @Param id query string true "Event ID"
// @Param action query string true "Only 'cancel' is supported"
// @Success 200 {object} map[string]interface{} "Cancelled event and number of registrants notified"
// @Failure 400 {object} map[string]string "Unknown action"
// @Failure 404 {object} map[string]string "Event not found"
// @Router /events [patch]
func (h *Handler) PatchEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	if action := r.URL.Query().Get("action"); action != "cancel" {
		respondError(w, http.StatusBadRequest, "unsupported action")
		return
	}

	event, notified, err := h.engine.CancelEvent(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	zap.L().Info("event cancelled", zap.String("event_id", id), zap.Int("notified", notified))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"event":    event,
		"notified": notified,
	})
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Only events without registrations can be deleted; others must be cancelled
// @Tags Events
// @Produce json
// @Security CookieAuth
// @Param id query string true "Event ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]interface{} "Event has registrations (hasRegistrations: true)"
// @Failure 404 {object} map[string]string "Event not found"
// @Router /events [delete]
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	if err := h.events.Delete(r.Context(), id); err != nil {
		if errors.Is(err, model.ErrConflict) {
			respondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":            "event has registrations; cancel it instead",
				"hasRegistrations": true,
			})
			return
		}
		writeDomainError(w, r, err)
		return
	}
	zap.L().Info("event deleted", zap.String("event_id", id))
	respondJSON(w, http.StatusOK, map[string]string{"message": "event deleted"})
}
