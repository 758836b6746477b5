package http

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	loginflow "github.com/Taikiy49/FS-Geolabs/frontend/login"
	sessioncontext "github.com/Taikiy49/FS-Geolabs/frontend/shared/context"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/audit"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/cache"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/config"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/graph"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/s3storage"
	sessioncookie "github.com/Taikiy49/FS-Geolabs/infrastructure/session"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/uploadlog"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
	"github.com/Taikiy49/FS-Geolabs/models"
)

//go:embed assets/*
var assets embed.FS

var ShutdownTimeout = 2 * time.Second

// JanitorInterval is how often expired sessions and their workspaces are
// released.
var JanitorInterval = time.Minute

// Deps are the long-lived services shared by every request.
type Deps struct {
	Config  *config.Config
	DB      *sqlite.DB
	Backend *backend.Client
	Graph   *graph.Client
	// Storage is nil when direct S3 access is not configured.
	Storage *s3storage.Storage

	SessionCache *cache.UserSessionCache
	RoleCache    *cache.RoleCache
	Workspaces   *cache.WorkspaceCache
	RbacCache    *cache.RbacRolesCache
	Rbac         *rbac.Rbac
	Audit        *audit.Service
	Identity     *loginflow.Identity
}

// Server bundles dependencies and route wiring.
type Server struct {
	Addr   string
	ln     net.Listener
	server *http.Server
	router *chi.Mux

	Deps

	stopJanitor chan struct{}
	janitorDone sync.WaitGroup
}

// NewServer creates a new http server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Config == nil {
		deps.Config = config.Default()
	}
	if deps.Identity == nil {
		deps.Identity = &loginflow.Identity{
			DB:           deps.DB,
			SessionCache: deps.SessionCache,
			RoleCache:    deps.RoleCache,
			Directory:    deps.Backend,
			Auth:         deps.Config.Auth,
			TTL:          deps.Config.Session.TTL,
		}
	}
	s := &Server{
		Addr:   addr,
		router: chi.NewRouter(),
		Deps:   deps,
		server: &http.Server{
			MaxHeaderBytes: 1 << 20,
		},
	}

	// Secure headers first.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
			next.ServeHTTP(w, r)
		})
	})

	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Compress(5))
	s.router.Use(s.CSRFMiddleware)

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/portal", http.StatusSeeOther)
	})

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := s.DB.Ping(r.Context()); err != nil {
			slog.Error("health check failed", slog.Any("err", err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Serve assets from embedded FS.
	var assetsFS fs.FS = assets
	if sub, err := fs.Sub(assets, "assets"); err == nil {
		assetsFS = sub
	} else {
		slog.Error("assets subfs init failed; serving fallback fs", slog.Any("err", err))
	}
	s.router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))

	s.RegisterLoginRoutes()

	s.router.Group(func(r chi.Router) {
		r.Route("/portal", func(r chi.Router) {
			r.Use(s.AuthenticateMiddleware)
			s.RegisterFrontendRoutes(r)
			s.RegisterAdminRoutes(r)
		})
	})

	s.server.Handler = s.router
	return s
}

// AuthenticateMiddleware loads the session, signing the provider principal
// in when there is none, applies RBAC checks and attaches the workspace.
func (s *Server) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.currentSession(w, r)
		if !ok {
			return
		}

		path := r.URL.Path
		skipRBAC := false
		if session.Role == rbac.RoleOwner {
			session.ScreenPermissions = s.RbacCache.AllCodes()
			skipRBAC = true
		}
		if len(session.ScreenPermissions) == 0 {
			session.ScreenPermissions = s.RbacCache.Codes(session.UserRoles...)
		}

		if !skipRBAC && !s.RbacValidation(session.UserRoles, path, r.Method) {
			slog.Warn("rbac denied",
				slog.String("email", session.Email),
				slog.String("role", session.Role),
				slog.String("method", r.Method),
				slog.String("path", path))
			http.Redirect(w, r, "/portal?error="+url.QueryEscape("You do not have access to that screen"), http.StatusSeeOther)
			return
		}

		ws := s.workspaceFor(r, session)
		ctx := sessioncontext.NewContextWithSession(r.Context(), session)
		ctx = sessioncontext.NewContextWithWorkspace(ctx, ws)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentSession returns the request session. When it returns false the
// response has already been written.
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	if c, err := r.Cookie(sessioncookie.CookieName); err == nil && c.Value != "" {
		session, found := s.resolveSession(r.Context(), c.Value)
		switch {
		case found && session.Expired():
			s.dropSession(w, r, session.ID)
		case found && s.Identity.FromProvider(r) && !s.samePrincipal(r, session):
			// A different account signed in through the provider.
			s.dropSession(w, r, session.ID)
		case found:
			return session, true
		default:
			slog.Warn("session not found", slog.String("method", r.Method), slog.String("path", r.URL.Path))
		}
	}

	if !s.Identity.FromProvider(r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return models.Session{}, false
	}
	session, err := s.Identity.SignIn(w, r)
	if err != nil {
		slog.Error("automatic sign in failed", slog.Any("err", err))
		http.Redirect(w, r, "/login?error="+url.QueryEscape("Sign in failed"), http.StatusSeeOther)
		return models.Session{}, false
	}
	return session, true
}

func (s *Server) samePrincipal(r *http.Request, session models.Session) bool {
	email, _ := s.Identity.Principal(r)
	return models.SameEmail(email, session.Email)
}

func (s *Server) dropSession(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, sessioncookie.Clear(r))
	s.SessionCache.DeleteSessionBySessionToken(token)
	s.Workspaces.Close(token)
	if err := DeleteSessionByID(s.DB, token); err != nil {
		slog.Error("cannot delete session from DB", slog.String("session_id", token), slog.Any("err", err))
	}
}

func (s *Server) resolveSession(ctx context.Context, token string) (session models.Session, ok bool) {
	if cached, found := s.SessionCache.FindSessionBySessionToken(token); found {
		return cached, true
	}

	dbSession, err := loginflow.LoadSessionByToken(ctx, s.DB, token)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("load session from db failed", slog.String("session_id", token), slog.Any("err", err))
		}
		return session, false
	}

	s.SessionCache.AddSession(dbSession)
	return dbSession, true
}

// workspaceFor returns the session workspace, building it on first use.
func (s *Server) workspaceFor(r *http.Request, session models.Session) *workspace.Workspace {
	ws := s.Workspaces.GetOrCreate(session.ID, func() *workspace.Workspace {
		slog.Debug("workspace created", slog.String("email", session.Email))
		return workspace.New(workspace.Options{
			Email:             session.Email,
			Role:              session.Role,
			Backend:           s.Backend.As(session.Email),
			Graph:             s.Graph,
			UploadConcurrency: s.Config.Upload.Concurrency,
			AcceptedExt:       s.Config.Upload.AcceptedExt,
			LookupDelay:       s.Config.OCR.LookupDebounce,
			OnUploadFinished:  uploadlog.Recorder(s.DB, session.Email),
		})
	})
	ws.SetGraphToken(s.Identity.AccessToken(r))
	return ws
}

func (s *Server) RbacValidation(userRoles []string, url, method string) bool {
	if len(userRoles) == 0 {
		return false
	}
	resources := s.RbacCache.Resources(userRoles...)
	if len(resources) == 0 {
		return false
	}
	return rbac.ValidateResourceAccess(resources, url, method)
}

// SweepExpired releases expired sessions and their workspaces.
func (s *Server) SweepExpired(ctx context.Context) {
	for _, token := range s.SessionCache.DeleteExpired() {
		s.Workspaces.Close(token)
	}
	n, err := loginflow.DeleteExpiredSessions(ctx, s.DB, time.Now())
	if err != nil {
		slog.Error("delete expired sessions failed", slog.Any("err", err))
		return
	}
	if n > 0 {
		slog.Info("expired sessions removed", slog.Int64("count", n))
	}
}

func (s *Server) runJanitor(stop <-chan struct{}) {
	defer s.janitorDone.Done()
	t := time.NewTicker(JanitorInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.SweepExpired(context.Background())
		}
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	var err error
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	s.stopJanitor = make(chan struct{})
	s.janitorDone.Add(1)
	go s.runJanitor(s.stopJanitor)
	go s.server.Serve(s.ln)
	return nil
}

// Stop gracefully shuts down the server and closes every workspace, which
// cancels uploads still in flight.
func (s *Server) Stop() error {
	if s.ln == nil {
		return fmt.Errorf("HTTP server has not been started or is already stopped")
	}
	close(s.stopJanitor)
	s.janitorDone.Wait()
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	s.Workspaces.CloseAll()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %v", err)
	}
	s.ln = nil
	return nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// DeleteSessionByID deletes a session by its ID using a write transaction.
func DeleteSessionByID(db *sqlite.DB, sessionID string) error {
	return loginflow.DeleteSessionByToken(context.Background(), db, sessionID)
}
