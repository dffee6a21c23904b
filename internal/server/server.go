package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/basket/internal/handler"
	"github.com/dukerupert/basket/internal/middleware"
	"github.com/dukerupert/basket/internal/service"
	"github.com/dukerupert/basket/internal/store"
	ws "github.com/dukerupert/basket/internal/websocket"
)

// signupLimit bounds account creation per client address.
const (
	signupLimit  = 10
	signupWindow = time.Minute
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	listH       *handler.ListHandler
	sessionH    *handler.SessionHandler
	userH       *handler.UserHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// New wires stores, services and handlers over db.
func New(db *sql.DB, opts service.Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	m := store.NewManager(db, nil)

	lists := service.NewListService(m, logger, opts)
	sessions := service.NewSessionService(m, logger, opts)
	users := service.NewUserService(m, logger)

	return &Server{
		db:          db,
		hub:         hub,
		listH:       handler.NewListHandler(lists, hub),
		sessionH:    handler.NewSessionHandler(sessions, hub),
		userH:       handler.NewUserHandler(users),
		rateLimiter: middleware.NewRateLimiter(signupLimit, signupWindow),
		logger:      logger,
	}
}

func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("POST /api/users", middleware.RateLimit(s.rateLimiter)(http.HandlerFunc(s.userH.Create)))
	outerMux.HandleFunc("GET /api/users/{id}", s.userH.Get)
	outerMux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)
	outerMux.Handle("/api/", middleware.RequireUser(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status = "database unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"status":"` + status + `"}`))
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/lists", s.listH.Mine)
	mux.HandleFunc("POST /api/lists", s.listH.Create)
	mux.HandleFunc("GET /api/lists/{id}", s.listH.Get)
	mux.HandleFunc("PATCH /api/lists/{id}", s.listH.Update)
	mux.HandleFunc("DELETE /api/lists/{id}", s.listH.Delete)
	mux.HandleFunc("GET /api/communities/{id}/lists", s.listH.Community)

	mux.HandleFunc("POST /api/lists/{id}/owners", s.listH.Share)
	mux.HandleFunc("DELETE /api/lists/{id}/owners/{user_id}", s.listH.Unshare)

	mux.HandleFunc("GET /api/lists/{id}/items", s.listH.Items)
	mux.HandleFunc("POST /api/lists/{id}/items", s.listH.AddItem)
	mux.HandleFunc("PATCH /api/items/{id}", s.listH.UpdateItem)
	mux.HandleFunc("DELETE /api/items/{id}", s.listH.DeleteItem)
	mux.HandleFunc("POST /api/items/{id}/move", s.listH.MoveItem)
	mux.HandleFunc("POST /api/items/{id}/reorder", s.listH.ReorderItem)

	mux.HandleFunc("POST /api/sessions", s.sessionH.Create)
	mux.HandleFunc("GET /api/sessions", s.sessionH.History)
	mux.HandleFunc("GET /api/sessions/active", s.sessionH.Active)
	mux.HandleFunc("GET /api/sessions/{id}", s.sessionH.Get)
	mux.HandleFunc("POST /api/sessions/{id}/end", s.sessionH.End)
	mux.HandleFunc("POST /api/sessions/{id}/lists", s.sessionH.AddList)
	mux.HandleFunc("DELETE /api/sessions/{id}/lists/{list_id}", s.sessionH.RemoveList)
	mux.HandleFunc("GET /api/sessions/{id}/items", s.sessionH.Consolidated)
	mux.HandleFunc("GET /api/sessions/{id}/purchased", s.sessionH.Purchased)
}
