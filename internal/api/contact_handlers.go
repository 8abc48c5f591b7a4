package api

import (
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/fau-events/internal/model"
)

// SubmitContact godoc
// @Summary Send a contact message
// @Tags Contact
// @Accept json
// @Produce json
// @Param request body model.ContactRequest true "Message"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /contact [post]
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req model.ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)

	err := validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Email, validation.Required, is.Email),
		validation.Field(&req.Subject, validation.Length(0, 200)),
		validation.Field(&req.Message, validation.Required, validation.Length(1, 5000)),
	)
	if err != nil {
		writeDomainError(w, r, &model.ValidationError{Err: err})
		return
	}

	msg, err := h.contacts.Create(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": msg.ID, "message": "message received"})
}

// ListContacts godoc
// @Summary List contact messages
// @Tags Contact
// @Produce json
// @Security CookieAuth
// @Param status query string false "new, responded or archived"
// @Success 200 {array} model.ContactMessage
// @Router /secure-contact [get]
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	status := model.ContactStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}
	messages, err := h.contacts.List(r.Context(), status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// UpdateContactStatus godoc
// @Summary Change a contact message's status
// @Tags Contact
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path string true "Message ID"
// @Param request body model.ContactStatusRequest true "New status"
// @Success 200 {object} model.ContactMessage
// @Failure 400 {object} map[string]string "Invalid status"
// @Failure 404 {object} map[string]string "Message not found"
// @Router /secure-contact/{id} [patch]
func (h *Handler) UpdateContactStatus(w http.ResponseWriter, r *http.Request) {
	var req model.ContactStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	msg, err := h.contacts.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}
