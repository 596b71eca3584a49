package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gitea.com/go-chi/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/blogem/people-directory/authenticator"
	"github.com/blogem/people-directory/config"
	"github.com/blogem/people-directory/controllers"
	"github.com/blogem/people-directory/database"
	"github.com/blogem/people-directory/httpx"
	"github.com/blogem/people-directory/logger"
	"github.com/blogem/people-directory/metrics"
	appmiddleware "github.com/blogem/people-directory/middleware"
	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/repositories"
	"github.com/blogem/people-directory/services"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	if err := database.InitializeDatabase(cfg.DBDriver, cfg.DatabasePath); err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB()

	db := database.GetDB()
	repos := repositories.NewRepositories(db)
	srvs := services.NewServices(repos, log)

	if _, err := srvs.Users.EnsureDefaultAdmin(ctx, cfg.AdminPassword); err != nil {
		log.Error("failed to seed admin account", "error", err)
		os.Exit(1)
	}
	if _, err := srvs.Localities.SeedIfEmpty(ctx); err != nil {
		log.Warn("locality seeding skipped", "error", err)
	}

	metrics.Init()

	var sso authenticator.Provider
	if cfg.OIDC.Enabled() {
		provider, err := authenticator.NewOpenIDProvider(ctx, authenticator.OpenIDConfig{
			Domain:       cfg.OIDC.Domain,
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			CallbackURL:  cfg.OIDC.CallbackURL,
		})
		if err != nil {
			log.Error("single sign-on disabled", "error", err)
		} else {
			sso = provider
		}
	}

	ctrl := controllers.NewControllers(srvs, sso, db, cfg.DatabasePath, log)

	r, err := setupRouter(cfg, ctrl, srvs, log)
	if err != nil {
		log.Error("failed to setup router", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "database", cfg.DatabasePath, "driver", cfg.DBDriver, "sso", sso != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// setupRouter configures all routes
func setupRouter(cfg config.Config, ctrl *controllers.Controllers, srvs *services.Services, log *slog.Logger) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Middleware
	r.Use(appmiddleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(appmiddleware.HTTPMetrics)
	r.Use(appmiddleware.RateLimit(cfg.RatePerMinute))
	r.Use(corsHandler(cfg.CORSOrigins))

	// Session middleware
	lifetime := int64(cfg.SessionLifetime / time.Second)
	sessionHandler, err := session.Sessioner(session.Options{
		Provider:       "memory",
		ProviderConfig: "",
		CookieName:     "people_session",
		Secure:         cfg.UseHTTPS,
		Gclifetime:     lifetime,
		Maxlifetime:    lifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	r.Use(sessionHandler)
	r.Use(appmiddleware.LoadActor(srvs.Users))
	r.Use(appmiddleware.AccessLogger(log))

	health := func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
	r.Get("/health", health)
	r.Handle("/metrics", metrics.Handler())

	r.Get("/auth/sso/login", ctrl.Auth.SSOLogin)
	r.Get("/auth/sso/callback", ctrl.Auth.SSOCallback)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health)

		r.Post("/login", ctrl.Auth.Login)
		r.Post("/logout", ctrl.Auth.Logout)
		r.Get("/me", ctrl.Auth.Me)

		// Reads are open to anonymous viewers
		r.Get("/columns", ctrl.Records.Columns)
		r.Get("/search", ctrl.Records.Search)
		r.Get("/row/{id}", ctrl.Records.Get)
		r.Get("/localities", ctrl.Localities.Search)

		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.RequireRole(models.RoleEditor))
			r.Post("/row", ctrl.Records.Create)
			r.Post("/row/{id}", ctrl.Records.Update)
			r.Post("/row/{id}/comment", ctrl.Records.Comment)
			r.Get("/reports", ctrl.Reports.Index)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(appmiddleware.RequireRole(models.RoleAdmin))
			r.Get("/users", ctrl.Admin.Users)
			r.Post("/user", ctrl.Admin.SaveUser)
			r.Delete("/user/{username}", ctrl.Admin.DeleteUser)
			r.Post("/revert", ctrl.Admin.Revert)
			r.Post("/import", ctrl.Admin.Import)
			r.Post("/locality", ctrl.Admin.SaveLocality)
			r.Delete("/locality/{name}", ctrl.Admin.DeleteLocality)
		})

		r.Route("/_debug", func(r chi.Router) {
			r.Use(appmiddleware.DebugGuard(cfg.IsProduction(), cfg.DebugToken))
			r.Get("/db", ctrl.Debug.DB)
			r.Get("/tables", ctrl.Debug.Tables)
		})
	})

	// Static UI with single-page fallback
	r.NotFound(uiHandler(cfg.UIDir))

	return r, nil
}

// corsHandler allows the configured origins with credentials, or any origin
// without credentials when none are configured
func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		})
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-Id", "X-Debug-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// uiHandler serves files from dir, answering unknown non-API paths with index.html
func uiHandler(dir string) http.HandlerFunc {
	files := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "not found", nil)
			return
		}
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "not found", nil)
			return
		}
		http.ServeFile(w, r, index)
	}
}
