package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/cache"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/config"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
	sessioncookie "github.com/Taikiy49/FS-Geolabs/infrastructure/session"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
	"github.com/Taikiy49/FS-Geolabs/models"
)

// ErrNoPrincipal is returned when the request carries no signed-in user.
var ErrNoPrincipal = errors.New("no signed-in user")

// Directory is the backend user surface sign-in needs.
type Directory interface {
	RegisterUser(ctx context.Context, email string) error
	Users(ctx context.Context) ([]backend.UserRole, error)
}

// Identity signs users in from the identity provider headers.
type Identity struct {
	DB           *sqlite.DB
	SessionCache *cache.UserSessionCache
	RoleCache    *cache.RoleCache
	Directory    Directory
	Auth         config.AuthConfig
	TTL          time.Duration
}

// Principal returns the signed-in email from the principal header, or the
// development user when one is configured.
func (id *Identity) Principal(r *http.Request) (string, bool) {
	if email := strings.TrimSpace(r.Header.Get(id.Auth.PrincipalHeader)); email != "" {
		return email, true
	}
	if id.Auth.DevUser != "" {
		return id.Auth.DevUser, true
	}
	return "", false
}

// FromProvider reports whether the principal header, not the development
// user, identified the request.
func (id *Identity) FromProvider(r *http.Request) bool {
	return strings.TrimSpace(r.Header.Get(id.Auth.PrincipalHeader)) != ""
}

// AccessToken is the Graph token forwarded by the identity provider.
func (id *Identity) AccessToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(id.Auth.TokenHeader))
}

// SignIn creates a session for the request principal and sets the cookie.
func (id *Identity) SignIn(w http.ResponseWriter, r *http.Request) (models.Session, error) {
	email, ok := id.Principal(r)
	if !ok {
		return models.Session{}, ErrNoPrincipal
	}
	role := id.ResolveRole(r.Context(), email)
	session := newSession(email, role, id.TTL)
	if err := persistSession(r.Context(), id.DB, session); err != nil {
		return models.Session{}, fmt.Errorf("persist session: %w", err)
	}
	id.SessionCache.AddSession(session)
	http.SetCookie(w, sessioncookie.Cookie(r, session.ID, session.ExpiresAt))
	slog.Info("signed in", slog.String("email", email), slog.String("role", role))
	return session, nil
}

// ResolveRole registers email with the backend on first sight and returns
// its portal role. The configured super owner is always an owner.
func (id *Identity) ResolveRole(ctx context.Context, email string) string {
	if id.Auth.SuperOwner != "" && models.SameEmail(email, id.Auth.SuperOwner) {
		return rbac.RoleOwner
	}
	if role, ok := id.RoleCache.Get(email); ok {
		return role
	}
	if err := id.Directory.RegisterUser(ctx, email); err != nil && !backend.IsStatus(err, http.StatusConflict) {
		slog.Warn("register user failed", slog.String("email", email), slog.Any("err", err))
	}
	users, err := id.Directory.Users(ctx)
	if err != nil {
		slog.Warn("load user roles failed", slog.String("email", email), slog.Any("err", err))
		if id.Auth.DevUser != "" && models.SameEmail(email, id.Auth.DevUser) {
			return rbac.NormalizeRole(id.Auth.DevRole)
		}
		return rbac.RoleUser
	}
	roles := make(map[string]string, len(users))
	for _, u := range users {
		roles[u.Email] = rbac.NormalizeRole(u.Role)
	}
	id.RoleCache.Replace(roles)
	if role, ok := roles[email]; ok {
		return role
	}
	for e, role := range roles {
		if models.SameEmail(e, email) {
			return role
		}
	}
	return rbac.RoleUser
}

func newSession(email, role string, ttl time.Duration) models.Session {
	return models.Session{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		UserRoles: []string{role},
		ExpiresAt: sessioncookie.Expiry(ttl),
	}
}
