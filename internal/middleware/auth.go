package middleware

import (
	"context"
	"net/http"

	"fluvex/internal/domain"
	"fluvex/internal/observability"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	CompanyIDKey contextKey = "company_id"
	SessionKey   contextKey = "session"
)

// SessionReader resolves the session carried by a request
type SessionReader interface {
	RequireSession(r *http.Request) (*domain.SessionPayload, bool)
}

// Auth rejects requests without a valid session cookie before the wrapped
// handler runs. It does not check that the user still exists.
func Auth(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, ok := sessions.RequireSession(r)
			if !ok {
				observability.SessionRejections.Inc()
				observability.FromContext(r.Context()).Debug("session rejected",
					"method", r.Method,
					"path", r.URL.Path,
				)
				http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
				return
			}

			ctx := WithIdentity(r.Context(), payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity stores the session identity in ctx, both for handlers and
// for the context-aware logger.
func WithIdentity(ctx context.Context, payload *domain.SessionPayload) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, payload.SubjectID)
	ctx = context.WithValue(ctx, CompanyIDKey, payload.TenantID)
	ctx = context.WithValue(ctx, SessionKey, payload)
	ctx = observability.WithUserID(ctx, payload.SubjectID)
	return observability.WithCompanyID(ctx, payload.TenantID)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

func GetCompanyID(ctx context.Context) (string, bool) {
	companyID, ok := ctx.Value(CompanyIDKey).(string)
	return companyID, ok
}

func GetSessionPayload(ctx context.Context) (*domain.SessionPayload, bool) {
	payload, ok := ctx.Value(SessionKey).(*domain.SessionPayload)
	return payload, ok
}
