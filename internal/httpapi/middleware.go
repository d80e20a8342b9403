package httpapi

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/swaphub/marketplace/internal/ratelimit"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID      uuid.UUID
	DisplayName string
	Admin       bool
}

// identityFrom returns the authenticated identity from the request context.
// The auth middleware guarantees it is present on protected routes.
func identityFrom(r *http.Request) Identity {
	id, _ := r.Context().Value(identityKey).(Identity)
	return id
}

// withAuth verifies the bearer token and attaches the caller's identity to
// the request context. The session cache in Redis short-circuits repeat
// verification; a cache outage falls back to full verification.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "missing_token", "missing bearer token")
			return
		}

		ctx := r.Context()

		if sess, err := a.sessions.Lookup(ctx, token); err == nil && sess != nil {
			userID, err := uuid.Parse(sess.UserID)
			if err == nil {
				id := Identity{UserID: userID, DisplayName: sess.DisplayName, Admin: sess.Admin}
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, identityKey, id)))
				return
			}
		}

		verified, err := a.verifier.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
			return
		}

		// First request from this user creates the row; later requests are
		// an upsert no-op.
		if err := a.users.Ensure(ctx, verified.UserID, verified.DisplayName); err != nil {
			log.Printf("[api] ensure user %s: %v", verified.UserID, err)
			respondError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}

		admin, err := a.users.IsAdmin(ctx, verified.UserID)
		if err != nil {
			log.Printf("[api] admin lookup %s: %v", verified.UserID, err)
			respondError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}

		if err := a.sessions.Cache(ctx, token, verified.UserID, verified.DisplayName, admin); err != nil {
			// Cache failure is non-fatal: the next request re-verifies.
			log.Printf("[api] session cache: %v", err)
		}

		id := Identity{UserID: verified.UserID, DisplayName: verified.DisplayName, Admin: admin}
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, identityKey, id)))
	})
}

// withAdmin rejects callers without the admin capability. It must run after
// withAuth.
func (a *API) withAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identityFrom(r).Admin {
			respondError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit enforces the given rule per authenticated user, responding 429
// when exceeded. The limiter fails open on Redis errors.
func (a *API) rateLimit(rule ratelimit.Rule, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r)

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		allowed, _ := a.limiter.Allow(ctx, id.UserID.String(), rule)
		cancel()
		if !allowed {
			respondError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
			return
		}
		next(w, r)
	}
}
