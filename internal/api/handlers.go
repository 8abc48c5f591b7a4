package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/fau-events/internal/middleware"
	"github.com/fau-events/internal/model"
	"github.com/fau-events/internal/registration"
	"github.com/fau-events/internal/scheduler"
)

const maxBodyBytes = 1 << 20

type UserStore interface {
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	ValidatePassword(user *model.User, password string) bool
	UpdatePassword(ctx context.Context, userID, password string) error
	Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

type EventStore interface {
	Create(ctx context.Context, req *model.CreateEventRequest) (*model.Event, error)
	FindByID(ctx context.Context, id string) (*model.Event, error)
	ListPublic(ctx context.Context) ([]model.Event, error)
	Update(ctx context.Context, id string, req *model.UpdateEventRequest) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

type ContactStore interface {
	Create(ctx context.Context, req *model.ContactRequest) (*model.ContactMessage, error)
	List(ctx context.Context, status model.ContactStatus) ([]model.ContactMessage, error)
	UpdateStatus(ctx context.Context, id string, status model.ContactStatus) (*model.ContactMessage, error)
}

type NotificationLog interface {
	FindRecent(ctx context.Context, limit int) ([]model.NotificationRecord, error)
	CountByStatus(ctx context.Context, status model.NotificationStatus) (int, error)
}

type ReminderScheduler interface {
	IsRunning() bool
	NextRun() *time.Time
	RunNow(ctx context.Context) (*scheduler.TickResult, error)
}

// Handler contains all API handlers
type Handler struct {
	users         UserStore
	events        EventStore
	contacts      ContactStore
	notifications NotificationLog
	engine        *registration.Engine
	scheduler     ReminderScheduler
	auth          *middleware.AuthMiddleware
}

// NewHandler creates a new API handler
func NewHandler(
	users UserStore,
	events EventStore,
	contacts ContactStore,
	notifications NotificationLog,
	engine *registration.Engine,
	sched ReminderScheduler,
	auth *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		users:         users,
		events:        events,
		contacts:      contacts,
		notifications: notifications,
		engine:        engine,
		scheduler:     sched,
		auth:          auth,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}

// writeDomainError maps domain errors to status codes. Reason strings are
// matched by clients and must stay stable.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		capErr *model.CapacityError
		valErr *model.ValidationError
	)
	switch {
	case errors.As(err, &valErr):
		respondError(w, http.StatusBadRequest, valErr.Error())
	case errors.As(err, &capErr):
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":     model.ErrCapacityExceeded.Error(),
			"available": capErr.Available,
		})
	case errors.Is(err, model.ErrDuplicateRegistration),
		errors.Is(err, model.ErrEventCancelled):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		respondError(w, http.StatusNotFound, model.ErrNotFound.Error())
	case errors.Is(err, model.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, model.ErrInvalidCredentials.Error())
	case errors.Is(err, model.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, model.ErrUnauthorized.Error())
	case errors.Is(err, model.ErrForbidden):
		respondError(w, http.StatusForbidden, model.ErrForbidden.Error())
	case errors.Is(err, model.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", r.Header.Get(middleware.RequestIDHeader)),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Health and status handlers

// Health godoc
// @Summary Health check
// @Description Check if the API is running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Health status"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":    "ok",
		"scheduler": h.scheduler.IsRunning(),
	}
	if next := h.scheduler.NextRun(); next != nil {
		body["nextReminderRun"] = next.Format(time.RFC3339)
	}
	if failed, err := h.notifications.CountByStatus(r.Context(), model.NotificationStatusFailed); err != nil {
		zap.L().Warn("health: count failed notifications", zap.Error(err))
		body["status"] = "degraded"
	} else {
		body["failedNotifications"] = failed
	}
	respondJSON(w, http.StatusOK, body)
}

// RunReminders godoc
// @Summary Run the reminder job now
// @Description Runs one reminder pass immediately. Already reminded events are skipped.
// @Tags System
// @Produce json
// @Security CookieAuth
// @Success 200 {object} scheduler.TickResult
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Already running"
// @Router /secure-reminders/run [post]
func (h *Handler) RunReminders(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.RunNow(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if result == nil {
		respondError(w, http.StatusConflict, "reminder job is already running")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListNotifications godoc
// @Summary Recent notification attempts
// @Tags System
// @Produce json
// @Security CookieAuth
// @Param limit query int false "Max records (default 100)"
// @Success 200 {array} model.NotificationRecord
// @Router /secure-notifications [get]
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	if limit < 1 || limit > 500 {
		limit = 100
	}
	records, err := h.notifications.FindRecent(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}
