package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"payment_batch_service/internal/app"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Authenticator resolves a bearer token to the owning organization.
type Authenticator interface {
	AuthenticateCaller(ctx context.Context, token string) (uuid.UUID, error)
}

type ctxKey int

const orgIDKey ctxKey = iota

// OrgIDFromContext returns the organization set by RequireBearer.
func OrgIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(orgIDKey).(uuid.UUID)
	return id, ok
}

// RequireBearer rejects requests without a valid "Authorization: Bearer" credential.
func RequireBearer(auth Authenticator, logger *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "Authorization: Bearer header is required")
				return
			}

			orgID, err := auth.AuthenticateCaller(r.Context(), token)
			if err != nil {
				if errors.Is(err, app.ErrUnauthenticated) {
					writeError(w, http.StatusUnauthorized, "invalid credential")
					return
				}
				logger.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Error("Credential lookup failed")
				writeError(w, http.StatusInternalServerError, "an unexpected error occurred, please try again later")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), orgIDKey, orgID)))
		})
	}
}
