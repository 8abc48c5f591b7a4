package api

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/fau-events/internal/middleware"
	"github.com/fau-events/internal/model"
)

const minPasswordLength = 8

// Login godoc
// @Summary User login
// @Description Authenticate and start a cookie session. The CSRF token in the body must be sent back in the X-CSRF-Token header on state-changing requests.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Login credentials"
// @Success 200 {object} model.LoginResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 500 {object} map[string]string "Server error"
// @Router /login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := validation.ValidateStruct(&req,
		validation.Field(&req.Username, validation.Required),
		validation.Field(&req.Password, validation.Required),
	)
	if err != nil {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, model.ErrInvalidCredentials) {
			writeDomainError(w, r, err)
			return
		}
		zap.L().Info("failed login", zap.String("request_id", r.Header.Get(middleware.RequestIDHeader)))
		respondError(w, http.StatusUnauthorized, model.ErrInvalidCredentials.Error())
		return
	}

	session, err := h.auth.IssueSession(user)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.auth.SetSessionCookies(w, session)

	respondJSON(w, http.StatusOK, model.LoginResponse{
		User:      user,
		CSRFToken: session.CSRFToken,
		ExpiresAt: session.ExpiresAt.Unix(),
	})
}

// Logout godoc
// @Summary Log out
// @Description Clears the session and CSRF cookies
// @Tags Authentication
// @Produce json
// @Success 200 {object} map[string]string
// @Router /logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.ClearSessionCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Security CookieAuth
// @Success 200 {object} model.User
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	user, err := h.users.FindByID(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, model.ErrUnauthorized.Error())
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Change own password
// @Tags Authentication
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body model.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Wrong current password"
// @Router /me/password [put]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req model.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.CurrentPassword, validation.Required),
		validation.Field(&req.NewPassword, validation.Required, validation.Length(minPasswordLength, 128)),
	)
	if err != nil {
		writeDomainError(w, r, &model.ValidationError{Err: err})
		return
	}

	claims := middleware.GetUserFromContext(r.Context())
	user, err := h.users.FindByID(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if user == nil || !h.users.ValidatePassword(user, req.CurrentPassword) {
		respondError(w, http.StatusUnauthorized, model.ErrInvalidCredentials.Error())
		return
	}

	if err := h.users.UpdatePassword(r.Context(), user.ID, req.NewPassword); err != nil {
		writeDomainError(w, r, err)
		return
	}
	zap.L().Info("password changed", zap.String("user_id", user.ID))
	respondJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
