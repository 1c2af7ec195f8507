package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/listpal/listpal/internal/auth"
	"github.com/listpal/listpal/internal/backup"
	"github.com/listpal/listpal/internal/config"
	"github.com/listpal/listpal/internal/email"
	"github.com/listpal/listpal/internal/handler"
	"github.com/listpal/listpal/internal/list"
	"github.com/listpal/listpal/internal/middleware"
	"github.com/listpal/listpal/internal/store"
)

type Server struct {
	db            *sql.DB
	listH         *handler.ListHandler
	userH         *handler.UserHandler
	provider      *auth.Provider
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	listStore := store.NewListStore(db)
	containerStore := store.NewContainerStore(db)
	userStore := store.NewUserStore(db)

	provider := auth.NewProvider([]byte(cfg.JWTSecret), cfg.TokenTTL)
	gate := auth.NewGate(containerStore, listStore)
	svc := list.NewService(listStore, containerStore, logger.With("component", "list"))
	emailClient := email.NewClient(cfg.EmailServerToken, cfg.EmailFrom)
	backupMgr := backup.NewManager(cfg.Backup, db, logger.With("component", "backup"))

	return &Server{
		db:            db,
		listH:         handler.NewListHandler(svc, gate, userStore, emailClient, logger.With("component", "list_handler")),
		userH:         handler.NewUserHandler(userStore, containerStore, provider, logger.With("component", "user_handler")),
		provider:      provider,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// AuthProvider returns the token provider, for token issuance tooling.
func (s *Server) AuthProvider() *auth.Provider {
	return s.provider
}

// BackupManager returns the backup manager for lifecycle control.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes: registration, and PUBLIC-scope dereference by id pair.
	outerMux.HandleFunc("POST /api/users", s.rateLimitedHandler(s.userH.Register))
	outerMux.HandleFunc("GET /public/shared/get-list", s.listH.GetPublicList)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with the bearer-token middleware.
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.provider)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/containers/{container_id}", s.listH.GetLists)
	mux.HandleFunc("PUT /api/containers/{container_id}/order", s.listH.ReorderLists)

	mux.HandleFunc("POST /api/lists", s.listH.CreateList)
	mux.HandleFunc("PUT /api/lists", s.listH.UpdateList)
	mux.HandleFunc("DELETE /api/lists", s.listH.DeleteList)
	mux.HandleFunc("POST /api/lists/fetch", s.listH.GetList)
	mux.HandleFunc("POST /api/lists/reset", s.listH.ResetList)

	mux.HandleFunc("POST /api/lists/items", s.listH.CreateItem)
	mux.HandleFunc("PUT /api/lists/items", s.listH.UpdateItem)
	mux.HandleFunc("DELETE /api/lists/items", s.listH.DeleteItem)
	mux.HandleFunc("POST /api/lists/check-items", s.listH.CheckItems)

	mux.HandleFunc("POST /api/lists/people", s.listH.AddPeople)
	mux.HandleFunc("DELETE /api/lists/people", s.listH.RemovePeople)
	mux.HandleFunc("POST /api/lists/people/fetch", s.listH.GetPeople)

	mux.HandleFunc("POST /api/users/lookup", s.rateLimitedHandler(s.userH.Lookup))
	mux.HandleFunc("GET /api/users/suggested", s.userH.SuggestedPeople)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
