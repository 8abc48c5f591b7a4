package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fau-events/internal/config"
	"github.com/fau-events/internal/model"
)

type contextKey string

const UserContextKey contextKey = "user"

const (
	SessionCookie = "fau_session"
	CSRFCookie    = "fau_csrf"
	CSRFHeader    = "X-CSRF-Token"
)

// Session is what a successful login hands back to the client.
type Session struct {
	Token     string
	CSRFToken string
	ExpiresAt time.Time
}

type sessionClaims struct {
	UserID   string         `json:"userId"`
	Username string         `json:"username"`
	Name     string         `json:"name"`
	Role     model.UserRole `json:"role"`
	CSRF     string         `json:"csrf"`
	jwt.RegisteredClaims
}

// AuthMiddleware issues and verifies stateless session tokens.
type AuthMiddleware struct {
	jwtSecret    []byte
	ttl          time.Duration
	cookieSecure bool
}

func NewAuthMiddleware(cfg config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret:    []byte(cfg.Secret),
		ttl:          cfg.SessionTTL,
		cookieSecure: cfg.CookieSecure,
	}
}

// IssueSession signs a token for user together with a fresh anti-forgery
// value that is also embedded in the token.
func (m *AuthMiddleware) IssueSession(user *model.User) (*Session, error) {
	csrf, err := randomToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(m.ttl)
	claims := sessionClaims{
		UserID:   user.ID,
		Username: user.Username,
		Name:     user.Name,
		Role:     user.Role,
		CSRF:     csrf,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(m.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &Session{Token: tokenStr, CSRFToken: csrf, ExpiresAt: expiresAt}, nil
}

// ValidateToken verifies signature and expiry and returns the claims.
func (m *AuthMiddleware) ValidateToken(tokenStr string) (*model.TokenClaims, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		return m.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return &model.TokenClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Name:     claims.Name,
		Role:     claims.Role,
		CSRF:     claims.CSRF,
	}, nil
}

// Authenticate requires a valid session token from the Authorization header
// or, failing that, the session cookie.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.claimsFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, model.ErrUnauthorized.Error())
			return
		}
		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) claimsFromRequest(r *http.Request) (*model.TokenClaims, error) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return m.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
	}

	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, model.ErrUnauthorized
	}
	claims, err := m.ValidateToken(cookie.Value)
	if err != nil {
		return nil, err
	}
	claims.FromCookie = true
	return claims, nil
}

// RequireRole lets through callers whose role ranks at least role.
func RequireRole(role model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, model.ErrUnauthorized.Error())
				return
			}
			if claims.Role.Rank() < role.Rank() {
				writeError(w, http.StatusForbidden, model.ErrForbidden.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCSRF enforces the double-submit check on state-changing requests
// made with the session cookie. Header, cookie and token claim must agree.
func RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserFromContext(r.Context())
		if claims == nil {
			writeError(w, http.StatusUnauthorized, model.ErrUnauthorized.Error())
			return
		}
		if !isStateChanging(r.Method) || !claims.FromCookie {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get(CSRFHeader)
		cookie, err := r.Cookie(CSRFCookie)
		if err != nil || header == "" || claims.CSRF == "" ||
			!equalTokens(header, cookie.Value) || !equalTokens(header, claims.CSRF) {
			writeError(w, http.StatusForbidden, "invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetSessionCookies writes the HttpOnly session cookie and the
// script-readable CSRF cookie.
func (m *AuthMiddleware) SetSessionCookies(w http.ResponseWriter, s *Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    s.CSRFToken,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   maxAge,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *AuthMiddleware) ClearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{SessionCookie, CSRFCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: name == SessionCookie,
			Secure:   m.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// GetUserFromContext extracts user claims from context
func GetUserFromContext(ctx context.Context) *model.TokenClaims {
	claims, ok := ctx.Value(UserContextKey).(*model.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// WithUser stores claims in ctx; used by handlers and tests that bypass
// token parsing.
func WithUser(ctx context.Context, claims *model.TokenClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func equalTokens(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(model.ErrConfiguration, err)
	}
	return hex.EncodeToString(b), nil
}
