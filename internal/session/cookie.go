// Package session binds signed session tokens to the browser cookie that
// carries them between requests.
package session

import (
	"net/http"

	"fluvex/internal/domain"
)

// CookieName is the name of the session cookie
const CookieName = "fluvex_session"

// Codec encodes and verifies session tokens
type Codec interface {
	Encode(subjectID, tenantID string) (string, error)
	Decode(token string) (*domain.SessionPayload, bool)
}

// Manager creates, reads and clears the session cookie.
// It keeps no state between requests.
type Manager struct {
	codec  Codec
	secure bool
	maxAge int
}

// NewManager creates a cookie manager. secure should be true in production,
// where the dashboard is only served over HTTPS.
func NewManager(codec Codec, secure bool, maxAgeSeconds int) *Manager {
	return &Manager{
		codec:  codec,
		secure: secure,
		maxAge: maxAgeSeconds,
	}
}

// Start signs a token for the user and company and issues it
func (m *Manager) Start(w http.ResponseWriter, userID, companyID string) error {
	token, err := m.codec.Encode(userID, companyID)
	if err != nil {
		return err
	}
	m.Issue(w, token)
	return nil
}

// Issue sets the session cookie, replacing any previous one
func (m *Manager) Issue(w http.ResponseWriter, token string) {
	http.SetCookie(w, m.cookie(token, m.maxAge))
}

// Read returns the raw cookie value without validating it
func (m *Manager) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// Clear deletes the session cookie. The token itself stays valid until it
// expires; there is no server-side revocation.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1))
}

// RequireSession reads and verifies the session cookie. Callers must treat
// a false result as unauthenticated.
func (m *Manager) RequireSession(r *http.Request) (*domain.SessionPayload, bool) {
	token, ok := m.Read(r)
	if !ok {
		return nil, false
	}
	return m.codec.Decode(token)
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
