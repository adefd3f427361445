package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"fluvex/internal/domain"
	"fluvex/internal/middleware"
	"fluvex/internal/observability"
	"fluvex/internal/service"
	"fluvex/internal/session"
)

const maxBodyBytes = 1 << 20

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	sessions    *session.Manager
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *service.AuthService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
	}
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Register creates a company with its owner and signs the owner in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	identity, err := h.authService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if !h.startSession(w, r, identity) {
		return
	}

	writeJSON(w, http.StatusCreated, identity)
}

// Login checks credentials and issues a session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	identity, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	if !h.startSession(w, r, identity) {
		return
	}

	writeJSON(w, http.StatusOK, identity)
}

// Logout clears the session cookie. The token is not revoked.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the identity behind the session
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	companyID, _ := middleware.GetCompanyID(r.Context())

	identity, err := h.authService.CurrentIdentity(r.Context(), userID, companyID)
	if err != nil {
		if isStaleIdentity(err) {
			// The signature was fine but the account is gone; drop the cookie.
			h.sessions.Clear(w)
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, identity)
}

// ChangePassword replaces the signed-in user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID, _ := middleware.GetUserID(r.Context())

	err := h.authService.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Current password is incorrect")
	case errors.Is(err, domain.ErrUserNotFound):
		h.sessions.Clear(w)
		writeError(w, http.StatusUnauthorized, "Not authenticated")
	default:
		writeServiceError(w, r, err)
	}
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, identity *service.Identity) bool {
	if err := h.sessions.Start(w, identity.User.ID, identity.Company.ID); err != nil {
		observability.FromContext(r.Context()).Error("failed to issue session",
			"user_id", identity.User.ID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return false
	}
	observability.SessionsIssued.Inc()
	return true
}

func isStaleIdentity(err error) bool {
	return errors.Is(err, domain.ErrUserNotFound) ||
		errors.Is(err, domain.ErrCompanyNotFound) ||
		errors.Is(err, domain.ErrTenantMismatch)
}

// writeServiceError maps domain errors to status codes. Unexpected errors
// are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrEmailExists):
		writeError(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		observability.FromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
