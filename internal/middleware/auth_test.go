package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fau-events/internal/config"
	"github.com/fau-events/internal/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAuth(ttl time.Duration) *AuthMiddleware {
	return NewAuthMiddleware(config.AuthConfig{Secret: testSecret, SessionTTL: ttl})
}

func testUser(role model.UserRole) *model.User {
	return &model.User{ID: "u-1", Username: "kari@example.org", Name: "Kari", Role: role}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// protected mirrors how the router stacks the auth middlewares.
func protected(m *AuthMiddleware, role model.UserRole) http.Handler {
	return Chain(okHandler(), m.Authenticate, RequireRole(role), RequireCSRF)
}

func cookieRequest(method string, s *Session, csrfHeader string) *http.Request {
	req := httptest.NewRequest(method, "/api/events", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: s.Token})
	req.AddCookie(&http.Cookie{Name: CSRFCookie, Value: s.CSRFToken})
	if csrfHeader != "" {
		req.Header.Set(CSRFHeader, csrfHeader)
	}
	return req
}

func serve(h http.Handler, req *http.Request) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestIssueAndValidate(t *testing.T) {
	m := newTestAuth(2 * time.Hour)
	s, err := m.IssueSession(testUser(model.UserRoleMember))
	require.NoError(t, err)
	assert.Len(t, s.CSRFToken, 64)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), s.ExpiresAt, time.Minute)

	claims, err := m.ValidateToken(s.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "kari@example.org", claims.Username)
	assert.Equal(t, "Kari", claims.Name)
	assert.Equal(t, model.UserRoleMember, claims.Role)
	assert.Equal(t, s.CSRFToken, claims.CSRF)
}

func TestValidateToken_Rejects(t *testing.T) {
	m := newTestAuth(time.Hour)

	expired, err := newTestAuth(-time.Minute).IssueSession(testUser(model.UserRoleAdmin))
	require.NoError(t, err)
	_, err = m.ValidateToken(expired.Token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	other := NewAuthMiddleware(config.AuthConfig{Secret: "another-secret-another-secret-xx", SessionTTL: time.Hour})
	foreign, err := other.IssueSession(testUser(model.UserRoleAdmin))
	require.NoError(t, err)
	_, err = m.ValidateToken(foreign.Token)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"userId": "u-1", "role": "admin", "exp": time.Now().Add(time.Hour).Unix(),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ValidateToken(unsigned)
	assert.Error(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": "u-1", "role": "admin"})
	signed, err := noExp.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = m.ValidateToken(signed)
	assert.Error(t, err)

	_, err = m.ValidateToken("garbage")
	assert.Error(t, err)
}

func TestAuthenticate_MissingOrInvalid(t *testing.T) {
	m := newTestAuth(time.Hour)
	h := protected(m, model.UserRoleUser)

	assert.Equal(t, http.StatusUnauthorized, serve(h, httptest.NewRequest(http.MethodGet, "/api/me", nil)))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, serve(h, req))

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "nope"})
	assert.Equal(t, http.StatusUnauthorized, serve(h, req))
}

func TestRequireRole_Tiers(t *testing.T) {
	m := newTestAuth(time.Hour)

	tests := []struct {
		name     string
		have     model.UserRole
		need     model.UserRole
		expected int
	}{
		{"admin passes admin", model.UserRoleAdmin, model.UserRoleAdmin, http.StatusNoContent},
		{"admin passes member", model.UserRoleAdmin, model.UserRoleMember, http.StatusNoContent},
		{"member passes member", model.UserRoleMember, model.UserRoleMember, http.StatusNoContent},
		{"member blocked from admin", model.UserRoleMember, model.UserRoleAdmin, http.StatusForbidden},
		{"user blocked from member", model.UserRoleUser, model.UserRoleMember, http.StatusForbidden},
		{"user passes user", model.UserRoleUser, model.UserRoleUser, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := m.IssueSession(testUser(tt.have))
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodGet, "/api/secure-registrations", nil)
			req.Header.Set("Authorization", "Bearer "+s.Token)
			assert.Equal(t, tt.expected, serve(protected(m, tt.need), req))
		})
	}
}

func TestRequireCSRF_DoubleSubmit(t *testing.T) {
	m := newTestAuth(time.Hour)
	h := protected(m, model.UserRoleAdmin)
	s, err := m.IssueSession(testUser(model.UserRoleAdmin))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, serve(h, cookieRequest(http.MethodGet, s, "")), "safe method needs no header")
	assert.Equal(t, http.StatusForbidden, serve(h, cookieRequest(http.MethodDelete, s, "")), "missing header")
	assert.Equal(t, http.StatusForbidden, serve(h, cookieRequest(http.MethodPost, s, "wrong")), "mismatched header")
	assert.Equal(t, http.StatusNoContent, serve(h, cookieRequest(http.MethodPatch, s, s.CSRFToken)))

	// Header and cookie agree but were not issued with this session.
	req := httptest.NewRequest(http.MethodPut, "/api/events", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: s.Token})
	req.AddCookie(&http.Cookie{Name: CSRFCookie, Value: "forged"})
	req.Header.Set(CSRFHeader, "forged")
	assert.Equal(t, http.StatusForbidden, serve(h, req))
}

func TestRequireCSRF_BearerExempt(t *testing.T) {
	m := newTestAuth(time.Hour)
	s, err := m.IssueSession(testUser(model.UserRoleAdmin))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer "+s.Token)
	assert.Equal(t, http.StatusNoContent, serve(protected(m, model.UserRoleAdmin), req))
}

func TestSessionCookies(t *testing.T) {
	m := NewAuthMiddleware(config.AuthConfig{Secret: testSecret, SessionTTL: time.Hour, CookieSecure: true})
	s, err := m.IssueSession(testUser(model.UserRoleUser))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.SetSessionCookies(rec, s)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, CSRFCookie, cookies[1].Name)
	assert.False(t, cookies[1].HttpOnly)
	assert.Equal(t, s.CSRFToken, cookies[1].Value)

	rec = httptest.NewRecorder()
	m.ClearSessionCookies(rec)
	for _, c := range rec.Result().Cookies() {
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestID(t *testing.T) {
	h := RequestID(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
}
