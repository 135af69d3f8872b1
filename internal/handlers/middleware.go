package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bankly/internal/auth"

	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request id back to the client.
const RequestIDHeader = "X-Request-ID"

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs method, path, status and duration of every request
// under a request id. An incoming X-Request-ID is kept, otherwise one is
// generated.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.Info("request completed",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// APIAuth requires a bearer access token and puts its user in the context.
func (h *Handlers) APIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			respondDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		user, _, err := h.auth.Authenticate(r.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				h.respondError(w, r, err)
				return
			}
			h.log.WarnContext(r.Context(), "unauthorized request", "path", r.URL.Path, "error", err)
			respondDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}

		next.ServeHTTP(w, withUser(r, user))
	})
}

// WebAuth wraps page handlers to require a logged-in browser.
// It also implements rolling sessions: once the cookie's access token is
// past half its lifetime, a fresh token replaces it.
func (h *Handlers) WebAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		user, claims, err := h.auth.Authenticate(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				h.log.ErrorContext(r.Context(), "failed to authenticate session", "path", r.URL.Path, "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			// Invalid or expired token, clear the cookie
			h.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		ttl := h.auth.Tokens().AccessTTL()
		if claims.ExpiresIn(time.Now()) < ttl/2 {
			if token, err := h.auth.Tokens().Access(user.ID); err == nil {
				h.setSessionCookie(w, token)
			} else {
				h.log.WarnContext(r.Context(), "failed to renew session", "user_id", user.ID, "error", err)
			}
		}

		next.ServeHTTP(w, withUser(r, user))
	})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.Tokens().AccessTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
