package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bankly/internal/auth"
	"bankly/internal/bank"
	"bankly/internal/config"
	"bankly/internal/handlers"
	"bankly/internal/logging"
	"bankly/internal/storage"

	"github.com/go-chi/chi/v5"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := openDB(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if cfg.Auth.JWTSecret == config.DefaultJWTSecret {
		logger.Warn("JWT_SECRET is not set, using the development secret")
	}

	authService := auth.NewService(db, auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL))
	if err := bootstrapAdmin(context.Background(), db, authService, cfg.Admin, logger); err != nil {
		return err
	}

	h := handlers.NewHandlers(handlers.Deps{
		DB:            db,
		Auth:          authService,
		Engine:        bank.NewEngine(db, cfg.Ledger.MaxAttempts, logger),
		Notifications: bank.NewNotificationService(db),
		Queries:       bank.NewQueries(db, nil),
		TemplateDir:   cfg.HTTP.TemplateDir,
		SecureCookie:  cfg.HTTP.SecureCookie,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           setupRouter(h, cfg.HTTP.StaticDir),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func openDB(cfg config.DBConfig) (*storage.DB, error) {
	if cfg.DatabaseURL != "" {
		return storage.NewPostgres(cfg.DatabaseURL, cfg.MaxConns)
	}
	return storage.NewDB(cfg.Path)
}

// bootstrapAdmin creates the configured user when the database has none.
func bootstrapAdmin(ctx context.Context, db *storage.DB, svc *auth.Service, admin config.AdminConfig, logger *slog.Logger) error {
	if admin.User == "" || admin.Password == "" {
		return nil
	}

	count, err := db.UserCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	user, err := svc.Register(ctx, admin.User, "", admin.Password)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	logger.Info("created initial user", "username", user.Username, "user_id", user.ID)
	return nil
}

func setupRouter(h *handlers.Handlers, staticDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(handlers.RequestLogger(slog.Default()))

	r.Get("/healthz", h.Health)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register/", h.Register)
		r.Post("/auth/token/", h.Token)
		r.Post("/auth/token/refresh/", h.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(h.APIAuth)
			r.Post("/accounts/create/", h.CreateAccount)
			r.Get("/accounts/", h.ListAccounts)
			r.Post("/accounts/transactions/create/", h.CreateTransaction)
			r.Get("/accounts/{accountID}/statements/", h.Statement)
			r.Get("/accounts/notifications/unread/", h.UnreadNotifications)
			r.Post("/accounts/notifications/{notificationID}/read/", h.MarkNotificationRead)
			r.Delete("/accounts/notifications/{notificationID}/", h.DeleteNotification)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/accounts", http.StatusFound)
	})
	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.WebAuth)
		r.Get("/accounts", h.AccountsPage)
		r.Post("/accounts", h.OpenAccountForm)
		r.Get("/accounts/{accountID}", h.AccountPage)
		r.Post("/accounts/{accountID}/transactions", h.TransactionForm)
		r.Post("/notifications/{notificationID}/read", h.ReadNotificationForm)
	})

	return r
}
