package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fluvex/internal/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weekSeconds = 7 * 24 * 60 * 60

func newTestManager(t *testing.T, secure bool, now func() time.Time) *Manager {
	t.Helper()
	codec := security.NewSessionCodec(security.NewSigner([]byte("test-secret")), security.WithClock(now))
	return NewManager(codec, secure, weekSeconds)
}

func findCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("cookie %q not set", CookieName)
	return nil
}

func TestManager_Issue_Attributes(t *testing.T) {
	tests := []struct {
		name   string
		secure bool
	}{
		{"development", false},
		{"production", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, tt.secure, time.Now)
			w := httptest.NewRecorder()

			m.Issue(w, "token-value")

			c := findCookie(t, w)
			assert.Equal(t, "token-value", c.Value)
			assert.Equal(t, "/", c.Path)
			assert.Equal(t, 604800, c.MaxAge)
			assert.True(t, c.HttpOnly)
			assert.Equal(t, tt.secure, c.Secure)
			assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		})
	}
}

func TestManager_Read(t *testing.T) {
	m := newTestManager(t, false, time.Now)

	t.Run("no cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		token, ok := m.Read(req)
		assert.False(t, ok)
		assert.Empty(t, token)
	})

	t.Run("empty cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: ""})
		_, ok := m.Read(req)
		assert.False(t, ok)
	})

	t.Run("other cookie only", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "abc"})
		_, ok := m.Read(req)
		assert.False(t, ok)
	})

	t.Run("raw value returned without validation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
		token, ok := m.Read(req)
		assert.True(t, ok)
		assert.Equal(t, "garbage", token)
	})
}

func TestManager_Clear(t *testing.T) {
	m := newTestManager(t, true, time.Now)
	w := httptest.NewRecorder()

	m.Clear(w)

	c := findCookie(t, w)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestManager_StartThenRequireSession(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	m := newTestManager(t, false, func() time.Time { return now })

	w := httptest.NewRecorder()
	require.NoError(t, m.Start(w, "u_42", "c_7"))
	issued := findCookie(t, w)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(issued)

	payload, ok := m.RequireSession(req)
	require.True(t, ok)
	assert.Equal(t, "u_42", payload.SubjectID)
	assert.Equal(t, "c_7", payload.TenantID)
}

func TestManager_Start_InvalidIdentity(t *testing.T) {
	m := newTestManager(t, false, time.Now)
	w := httptest.NewRecorder()

	err := m.Start(w, "", "c_7")

	assert.ErrorIs(t, err, security.ErrInvalidIdentity)
	assert.Empty(t, w.Result().Cookies())
}

func TestManager_RequireSession_Lifecycle(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	m := newTestManager(t, false, func() time.Time { return now })

	// NoCookie
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := m.RequireSession(req)
	assert.False(t, ok, "no cookie should be unauthenticated")

	// Valid
	w := httptest.NewRecorder()
	require.NoError(t, m.Start(w, "u_42", "c_7"))
	cookie := findCookie(t, w)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	_, ok = m.RequireSession(req)
	assert.True(t, ok, "fresh cookie should be valid")

	// Expired
	now = now.Add(security.SessionMaxAge + time.Millisecond)
	_, ok = m.RequireSession(req)
	assert.False(t, ok, "cookie past max age should be rejected")
}

func TestManager_RequireSession_Tampered(t *testing.T) {
	m := newTestManager(t, false, time.Now)

	w := httptest.NewRecorder()
	require.NoError(t, m.Start(w, "u_42", "c_7"))
	cookie := findCookie(t, w)

	tampered := []byte(cookie.Value)
	if tampered[0] == 'A' {
		tampered[0] = 'B'
	} else {
		tampered[0] = 'A'
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: string(tampered)})

	payload, ok := m.RequireSession(req)
	assert.False(t, ok)
	assert.Nil(t, payload)
}
