package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"bankly/internal/auth"
	"bankly/internal/bank"
	"bankly/internal/models"
	"bankly/internal/storage"

	"github.com/go-chi/chi/v5"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the cookie holding the web access token.
	SessionCookieName = "session"
)

// Deps are the services the handlers call into.
type Deps struct {
	DB            *storage.DB
	Auth          *auth.Service
	Engine        *bank.Engine
	Notifications *bank.NotificationService
	Queries       *bank.Queries
	TemplateDir   string
	SecureCookie  bool
	Logger        *slog.Logger
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           *storage.DB
	auth         *auth.Service
	engine       *bank.Engine
	notes        *bank.NotificationService
	queries      *bank.Queries
	templateDir  string
	secureCookie bool
	log          *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(d Deps) *Handlers {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		db:           d.DB,
		auth:         d.Auth,
		engine:       d.Engine,
		notes:        d.Notifications,
		queries:      d.Queries,
		templateDir:  d.TemplateDir,
		secureCookie: d.SecureCookie,
		log:          log,
	}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

func withUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), UserContextKey, user))
}

// Health reports whether the ledger store is reachable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("health probe failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

// fieldErrors is the body of a 400 response: messages keyed by field.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, message string) {
	f[field] = append(f[field], message)
}

// respondError maps service errors onto API responses.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *bank.ValidationError
		perr *bank.PermissionError
		nerr *bank.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, fieldErrors{verr.Field: {verr.Message}})
	case errors.As(err, &perr):
		respondDetail(w, http.StatusForbidden, perr.Message)
	case errors.Is(err, bank.ErrNoNotification):
		respondDetail(w, http.StatusNotFound, "Not found.")
	case errors.As(err, &nerr):
		respondJSON(w, http.StatusBadRequest, fieldErrors{nerr.Field: {nerr.Message}})
	case errors.Is(err, bank.ErrLedgerBusy):
		h.log.WarnContext(r.Context(), "ledger busy", "path", r.URL.Path, "error", err)
		respondDetail(w, http.StatusServiceUnavailable, "The ledger is busy, please retry.")
	default:
		h.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		respondDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

// pathID parses a numeric chi URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFiles(
		filepath.Join(h.templateDir, "base.html"),
		filepath.Join(h.templateDir, viewName),
	)
	if err != nil {
		h.log.Error("template error", "view", viewName, "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	target := "base.html"
	if r.Header.Get("HX-Request") == "true" {
		target = "content"
	}
	if err := tmpl.ExecuteTemplate(w, target, data); err != nil {
		h.log.Error("template execution error", "view", viewName, "error", err)
	}
}
