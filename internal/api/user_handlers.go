package api

import (
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/fau-events/internal/model"
)

// CreateUser godoc
// @Summary Create a user
// @Description Admins create accounts for board members
// @Tags Users
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body model.CreateUserRequest true "New user"
// @Success 201 {object} model.User
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "Username taken"
// @Router /users [post]
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	if req.Role == "" {
		req.Role = model.UserRoleUser
	}

	err := validation.ValidateStruct(&req,
		validation.Field(&req.Username, validation.Required, is.Email),
		validation.Field(&req.Password, validation.Required, validation.Length(minPasswordLength, 128)),
		validation.Field(&req.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.Role, validation.In(model.UserRoleAdmin, model.UserRoleMember, model.UserRoleUser)),
	)
	if err != nil {
		writeDomainError(w, r, &model.ValidationError{Err: err})
		return
	}

	user, err := h.users.Create(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// ListUsers godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Security CookieAuth
// @Success 200 {array} model.User
// @Router /users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}
