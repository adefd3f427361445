package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fluvex/internal/domain"
	"fluvex/internal/middleware"
	"fluvex/internal/security"
	"fluvex/internal/service"
	"fluvex/internal/session"
	"fluvex/internal/testutil"

	"github.com/go-chi/chi/v5"
)

type testServer struct {
	router http.Handler
	store  *testutil.Store
	users  *testutil.MockUserRepository
	codec  *security.SessionCodec
	hasher *security.PasswordHasher
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		store: testutil.NewStore(),
		now:   time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	ts.users = testutil.NewMockUserRepository(ts.store)
	ts.hasher = security.NewPasswordHasher(security.Argon2Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	ts.codec = security.NewSessionCodec(
		security.NewSigner([]byte("handler-test-secret-0123456789ab")),
		security.WithClock(func() time.Time { return ts.now }),
	)

	authService := service.NewAuthService(
		ts.users,
		testutil.NewMockCompanyRepository(ts.store),
		testutil.NewMockAccountRepository(ts.store),
		ts.hasher,
	)
	sessions := session.NewManager(ts.codec, false, int(security.SessionMaxAge.Seconds()))
	h := NewAuthHandler(authService, sessions)

	r := chi.NewRouter()
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(sessions))
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
			r.Put("/password", h.ChangePassword)
		})
	})
	ts.router = r
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) seedUser(t *testing.T, email, password string) (*domain.Company, *domain.User) {
	t.Helper()
	hash, err := ts.hasher.Hash(password)
	testutil.AssertNoError(t, err)
	return testutil.NewTestAccount(ts.store, testutil.WithEmail(email), testutil.WithPasswordHash(hash))
}

func (ts *testServer) sessionFor(t *testing.T, user *domain.User) string {
	t.Helper()
	token, err := ts.codec.Encode(user.ID, user.CompanyID)
	testutil.AssertNoError(t, err)
	return token
}

func registerBody() map[string]string {
	return map[string]string{
		"company_name": "Acme Logistics",
		"name":         "Ada Lovelace",
		"email":        "ada@example.com",
		"password":     "correct-horse",
	}
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("creates_account_and_session", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/register", registerBody()))

		body := testutil.AssertJSONResponse(t, w, http.StatusCreated)
		user := body["user"].(map[string]any)
		company := body["company"].(map[string]any)
		testutil.AssertEqual(t, user["email"], any("ada@example.com"))
		testutil.AssertEqual(t, user["role"], any(domain.RoleOwner))
		testutil.AssertEqual(t, company["name"], any("Acme Logistics"))
		_, leaked := user["password_hash"]
		testutil.AssertFalse(t, leaked, "credential must not be serialised")

		cookie := testutil.AssertCookie(t, w, session.CookieName)
		testutil.AssertTrue(t, cookie.HttpOnly, "cookie should be HttpOnly")
		testutil.AssertEqual(t, cookie.SameSite, http.SameSiteLaxMode)
		testutil.AssertEqual(t, cookie.MaxAge, 604800)
		testutil.AssertEqual(t, cookie.Path, "/")

		payload, ok := ts.codec.Decode(cookie.Value)
		testutil.AssertTrue(t, ok, "issued token should decode")
		testutil.AssertEqual(t, payload.SubjectID, user["id"].(string))
		testutil.AssertEqual(t, payload.TenantID, company["id"].(string))
	})

	t.Run("duplicate_email", func(t *testing.T) {
		ts := newTestServer(t)
		ts.seedUser(t, "ada@example.com", "whatever-pass")

		w := ts.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/register", registerBody()))

		testutil.AssertJSONError(t, w, http.StatusConflict, "Email already registered")
		testutil.AssertNoCookie(t, w, session.CookieName)
	})

	t.Run("invalid_input", func(t *testing.T) {
		ts := newTestServer(t)
		body := registerBody()
		body["password"] = "short"

		w := ts.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/register", body))

		testutil.AssertJSONError(t, w, http.StatusBadRequest, "Invalid input")
	})

	t.Run("malformed_json", func(t *testing.T) {
		ts := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
		req.Body = http.NoBody

		w := ts.do(req)

		testutil.AssertJSONError(t, w, http.StatusBadRequest, "Invalid request body")
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ts := newTestServer(t)
		_, user := ts.seedUser(t, "ada@example.com", "correct-horse")

		w := ts.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/login",
			LoginRequest{Email: "ada@example.com", Password: "correct-horse"}))

		testutil.AssertStatusCode(t, w, http.StatusOK)
		cookie := testutil.AssertCookie(t, w, session.CookieName)
		payload, ok := ts.codec.Decode(cookie.Value)
		testutil.AssertTrue(t, ok, "issued token should decode")
		testutil.AssertEqual(t, payload.SubjectID, user.ID)
		testutil.AssertEqual(t, payload.TenantID, user.CompanyID)
	})

	t.Run("wrong_password_and_unknown_email_look_alike", func(t *testing.T) {
		ts := newTestServer(t)
		ts.seedUser(t, "ada@example.com", "correct-horse")

		wrong := ts.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/login",
			LoginRequest{Email: "ada@example.com", Password: "battery-staple"}))
		unknown := ts.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/login",
			LoginRequest{Email: "eve@example.com", Password: "battery-staple"}))

		testutil.AssertJSONError(t, wrong, http.StatusUnauthorized, "Invalid email or password")
		testutil.AssertEqual(t, wrong.Body.String(), unknown.Body.String())
		testutil.AssertEqual(t, unknown.Code, http.StatusUnauthorized)
		testutil.AssertNoCookie(t, wrong, session.CookieName)
	})

	t.Run("store_failure_is_500_without_detail", func(t *testing.T) {
		ts := newTestServer(t)
		ts.users.GetByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
			return nil, errors.New("pq: password authentication failed for user fluvex")
		}

		w := ts.do(testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/login",
			LoginRequest{Email: "ada@example.com", Password: "correct-horse"}))

		testutil.AssertJSONError(t, w, http.StatusInternalServerError, "Internal server error")
		testutil.AssertNotContains(t, w.Body.String(), "pq:")
	})
}

func TestAuthHandler_Me(t *testing.T) {
	t.Run("valid_session", func(t *testing.T) {
		ts := newTestServer(t)
		company, user := ts.seedUser(t, "ada@example.com", "correct-horse")

		req := testutil.NewRequestWithCookie(t, http.MethodGet, "/api/v1/auth/me", session.CookieName, ts.sessionFor(t, user))
		w := ts.do(req)

		body := testutil.AssertJSONResponse(t, w, http.StatusOK)
		testutil.AssertEqual(t, body["user"].(map[string]any)["id"], any(user.ID))
		testutil.AssertEqual(t, body["company"].(map[string]any)["id"], any(company.ID))
	})

	t.Run("no_cookie", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))

		testutil.AssertJSONError(t, w, http.StatusUnauthorized, "Not authenticated")
	})

	t.Run("session_valid_through_day_seven_then_expires", func(t *testing.T) {
		ts := newTestServer(t)
		_, user := ts.seedUser(t, "ada@example.com", "correct-horse")
		token := ts.sessionFor(t, user)
		issued := ts.now

		for day := 1; day <= 7; day++ {
			ts.now = issued.Add(time.Duration(day) * 24 * time.Hour)
			w := ts.do(testutil.NewRequestWithCookie(t, http.MethodGet, "/api/v1/auth/me", session.CookieName, token))
			testutil.AssertStatusCode(t, w, http.StatusOK)
		}

		ts.now = issued.Add(8 * 24 * time.Hour)
		w := ts.do(testutil.NewRequestWithCookie(t, http.MethodGet, "/api/v1/auth/me", session.CookieName, token))
		testutil.AssertJSONError(t, w, http.StatusUnauthorized, "Not authenticated")
	})

	t.Run("deleted_user", func(t *testing.T) {
		ts := newTestServer(t)
		ghost := testutil.NewTestUser()

		req := testutil.NewRequestWithCookie(t, http.MethodGet, "/api/v1/auth/me", session.CookieName, ts.sessionFor(t, ghost))
		w := ts.do(req)

		testutil.AssertJSONError(t, w, http.StatusUnauthorized, "Not authenticated")
		testutil.AssertCookieCleared(t, w, session.CookieName)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	ts := newTestServer(t)
	_, user := ts.seedUser(t, "ada@example.com", "correct-horse")
	token := ts.sessionFor(t, user)

	w := ts.do(testutil.NewRequestWithCookie(t, http.MethodPost, "/api/v1/auth/logout", session.CookieName, token))

	testutil.AssertJSONContains(t, w, "message", "Logged out")
	testutil.AssertCookieCleared(t, w, session.CookieName)

	// Stateless tokens are not revoked; a copy of the old value still works.
	again := ts.do(testutil.NewRequestWithCookie(t, http.MethodGet, "/api/v1/auth/me", session.CookieName, token))
	testutil.AssertStatusCode(t, again, http.StatusOK)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	tests := []struct {
		name       string
		req        ChangePasswordRequest
		wantStatus int
		wantError  string
	}{
		{"success", ChangePasswordRequest{"correct-horse", "battery-staple"}, http.StatusNoContent, ""},
		{"wrong_current", ChangePasswordRequest{"nope-nope-nope", "battery-staple"}, http.StatusUnauthorized, "Current password is incorrect"},
		{"new_too_short", ChangePasswordRequest{"correct-horse", "tiny"}, http.StatusBadRequest, "Invalid input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			_, user := ts.seedUser(t, "ada@example.com", "correct-horse")

			req := testutil.NewJSONRequest(t, http.MethodPut, "/api/v1/auth/password", tt.req)
			req.AddCookie(&http.Cookie{Name: session.CookieName, Value: ts.sessionFor(t, user)})
			w := ts.do(req)

			if tt.wantError != "" {
				testutil.AssertJSONError(t, w, tt.wantStatus, tt.wantError)
				return
			}
			testutil.AssertStatusCode(t, w, tt.wantStatus)
			testutil.AssertTrue(t, ts.hasher.Verify(user.PasswordHash, tt.req.NewPassword), "new password should verify")
		})
	}

	t.Run("requires_session", func(t *testing.T) {
		ts := newTestServer(t)

		w := ts.do(testutil.NewJSONRequest(t, http.MethodPut, "/api/v1/auth/password",
			ChangePasswordRequest{"correct-horse", "battery-staple"}))

		testutil.AssertJSONError(t, w, http.StatusUnauthorized, "Not authenticated")
	})
}
