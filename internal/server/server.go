package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/gatherly/gatherly/internal/config"
	"github.com/gatherly/gatherly/internal/database"
	"github.com/gatherly/gatherly/internal/rsvp"
	"github.com/gatherly/gatherly/internal/server/handlers"
)

type Server struct {
	config       *config.Config
	db           *database.DB
	reconciler   *rsvp.Reconciler
	sessionStore *sessions.CookieStore
	router       *http.ServeMux
}

// GetDB implements handlers.Server interface
func (s *Server) GetDB() *database.DB {
	return s.db
}

// GetReconciler implements handlers.Server interface
func (s *Server) GetReconciler() *rsvp.Reconciler {
	return s.reconciler
}

func New(cfg *config.Config, db *database.DB) *Server {
	s := &Server{
		config:       cfg,
		db:           db,
		reconciler:   rsvp.NewReconciler(db),
		sessionStore: sessions.NewCookieStore([]byte(cfg.SessionSecret)),
		router:       http.NewServeMux(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Auth routes
	s.router.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.router.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.router.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))

	// Invitation routes (owner, authenticated)
	s.router.HandleFunc("POST /api/invitations", s.requireAuth(handlers.HandleCreateInvitation(s)))
	s.router.HandleFunc("GET /api/invitations", s.requireAuth(handlers.HandleListInvitations(s)))
	s.router.HandleFunc("GET /api/invitations/my/responses", s.requireAuth(handlers.HandleMyResponses(s)))
	s.router.HandleFunc("PUT /api/invitations/{id}", s.requireAuth(handlers.HandleUpdateInvitation(s)))
	s.router.HandleFunc("DELETE /api/invitations/{id}", s.requireAuth(handlers.HandleDeleteInvitation(s)))
	s.router.HandleFunc("GET /api/invitations/{id}/export", s.requireAuth(handlers.HandleExportCSV(s)))

	// Public routes (optional auth, optional anonymous token)
	s.router.HandleFunc("GET /api/invitations/{id}", handlers.HandleGetInvitation(s))
	s.router.HandleFunc("POST /api/invitations/{id}/rsvp", handlers.HandleRSVPSubmit(s))
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
