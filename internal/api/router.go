package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/fau-events/internal/middleware"
	"github.com/fau-events/internal/model"
)

// NewRouter creates a new HTTP router with all routes
func NewRouter(h *Handler, auth *middleware.AuthMiddleware, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	// protect wraps h with authentication, a minimum role and the CSRF check.
	protect := func(role model.UserRole, fn http.HandlerFunc) http.Handler {
		return middleware.Chain(fn, auth.Authenticate, middleware.RequireRole(role), middleware.RequireCSRF)
	}

	// Public routes
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", h.Logout)
	mux.HandleFunc("GET /api/events", h.GetEvents)
	mux.HandleFunc("POST /api/registrations", h.Register)
	mux.HandleFunc("POST /api/contact", h.SubmitContact)

	// Session routes
	mux.Handle("GET /api/me", protect(model.UserRoleUser, h.Me))
	mux.Handle("PUT /api/me/password", protect(model.UserRoleUser, h.ChangePassword))

	// Event management
	mux.Handle("POST /api/events", protect(model.UserRoleMember, h.CreateEvent))
	mux.Handle("PUT /api/events", protect(model.UserRoleAdmin, h.UpdateEvent))
	mux.Handle("PATCH /api/events", protect(model.UserRoleAdmin, h.PatchEvent))
	mux.Handle("DELETE /api/events", protect(model.UserRoleAdmin, h.DeleteEvent))

	// Registration management
	mux.Handle("GET /api/secure-registrations", protect(model.UserRoleMember, h.ListRegistrations))
	mux.Handle("DELETE /api/secure-registrations/{id}", protect(model.UserRoleAdmin, h.DeleteRegistration))

	// Contact messages
	mux.Handle("GET /api/secure-contact", protect(model.UserRoleAdmin, h.ListContacts))
	mux.Handle("PATCH /api/secure-contact/{id}", protect(model.UserRoleAdmin, h.UpdateContactStatus))

	// Users
	mux.Handle("POST /api/users", protect(model.UserRoleAdmin, h.CreateUser))
	mux.Handle("GET /api/users", protect(model.UserRoleAdmin, h.ListUsers))

	// Operations
	mux.Handle("GET /api/secure-notifications", protect(model.UserRoleAdmin, h.ListNotifications))
	mux.Handle("POST /api/secure-reminders/run", protect(model.UserRoleAdmin, h.RunReminders))

	// Apply global middleware
	return middleware.Chain(mux,
		middleware.Recover,
		middleware.RequestID,
		middleware.Logger,
		middleware.CORS(allowedOrigins),
		middleware.JSON,
	)
}
