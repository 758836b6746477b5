package login

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/cache"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/config"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
	sessioncookie "github.com/Taikiy49/FS-Geolabs/infrastructure/session"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
)

type fakeDirectory struct {
	registered []string
	users      []backend.UserRole
	usersErr   error
	registerFn func(email string) error
}

func (f *fakeDirectory) RegisterUser(_ context.Context, email string) error {
	f.registered = append(f.registered, email)
	if f.registerFn != nil {
		return f.registerFn(email)
	}
	return nil
}

func (f *fakeDirectory) Users(context.Context) ([]backend.UserRole, error) {
	return f.users, f.usersErr
}

func newTestIdentity(t *testing.T, dir Directory, auth config.AuthConfig) *Identity {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "login.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlite.ApplyMigrations(context.Background(), db, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if auth.PrincipalHeader == "" {
		auth.PrincipalHeader = "X-MS-CLIENT-PRINCIPAL-NAME"
	}
	return &Identity{
		DB:           db,
		SessionCache: cache.NewUserSessionCache(),
		RoleCache:    cache.NewRoleCache(time.Minute),
		Directory:    dir,
		Auth:         auth,
		TTL:          time.Hour,
	}
}

func TestResolveRole(t *testing.T) {
	conflict := &backend.APIError{Status: http.StatusConflict, Message: "exists"}
	dir := &fakeDirectory{
		users:      []backend.UserRole{{Email: "Lead@Geolabs.net", Role: "Admin"}, {Email: "kai@geolabs.net", Role: "User"}},
		registerFn: func(string) error { return conflict },
	}
	id := newTestIdentity(t, dir, config.AuthConfig{SuperOwner: "boss@geolabs.net"})
	ctx := context.Background()

	if got := id.ResolveRole(ctx, "BOSS@geolabs.net"); got != rbac.RoleOwner {
		t.Fatalf("super owner role = %q", got)
	}
	if len(dir.registered) != 0 {
		t.Fatalf("super owner should not need a backend round trip")
	}
	if got := id.ResolveRole(ctx, "lead@geolabs.net"); got != rbac.RoleAdmin {
		t.Fatalf("lead role = %q, want admin", got)
	}
	if got := id.ResolveRole(ctx, "kai@geolabs.net"); got != rbac.RoleUser {
		t.Fatalf("kai role = %q, want user", got)
	}
	if len(dir.registered) != 1 {
		t.Fatalf("second lookup should hit the role cache, registered %v", dir.registered)
	}
	if got := id.ResolveRole(ctx, "new@geolabs.net"); got != rbac.RoleUser {
		t.Fatalf("unknown user role = %q", got)
	}
}

func TestResolveRoleBackendDown(t *testing.T) {
	dir := &fakeDirectory{usersErr: backend.ErrUnavailable}
	id := newTestIdentity(t, dir, config.AuthConfig{DevUser: "dev@geolabs.net", DevRole: "Owner"})
	if got := id.ResolveRole(context.Background(), "dev@geolabs.net"); got != rbac.RoleOwner {
		t.Fatalf("dev user role = %q, want owner", got)
	}
	if got := id.ResolveRole(context.Background(), "other@geolabs.net"); got != rbac.RoleUser {
		t.Fatalf("fallback role = %q, want user", got)
	}
}

func TestSignInPersistsSession(t *testing.T) {
	dir := &fakeDirectory{users: []backend.UserRole{{Email: "kai@geolabs.net", Role: "Admin"}}}
	id := newTestIdentity(t, dir, config.AuthConfig{})

	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	w := httptest.NewRecorder()
	if _, err := id.SignIn(w, r); !errors.Is(err, ErrNoPrincipal) {
		t.Fatalf("expected ErrNoPrincipal, got %v", err)
	}

	r.Header.Set("X-MS-CLIENT-PRINCIPAL-NAME", "Kai@Geolabs.net")
	session, err := id.SignIn(w, r)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if session.Email != "kai@geolabs.net" || session.Role != rbac.RoleAdmin {
		t.Fatalf("unexpected session %+v", session)
	}
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessioncookie.CookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != session.ID || cookie.MaxAge <= 0 {
		t.Fatalf("missing session cookie, got %+v", cookie)
	}

	loaded, err := LoadSessionByToken(context.Background(), id.DB, session.ID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if loaded.Email != "kai@geolabs.net" || len(loaded.UserRoles) != 1 || loaded.UserRoles[0] != rbac.RoleAdmin {
		t.Fatalf("unexpected loaded session %+v", loaded)
	}

	if err := UpdateSessionRoles(context.Background(), id.DB, "KAI@geolabs.net", rbac.RoleUser); err != nil {
		t.Fatalf("update roles: %v", err)
	}
	loaded, _ = LoadSessionByToken(context.Background(), id.DB, session.ID)
	if loaded.Role != rbac.RoleUser {
		t.Fatalf("role after update = %q", loaded.Role)
	}

	n, err := DeleteExpiredSessions(context.Background(), id.DB, time.Now().Add(2*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("delete expired = %d, %v", n, err)
	}
}
