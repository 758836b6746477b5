package adminusers

import (
	"context"
	"fmt"

	"github.com/Taikiy49/FS-Geolabs/frontend/login"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/cache"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/sqlite"
)

// Sessions is what a role change must reach besides the backend.
type Sessions struct {
	Cache *cache.UserSessionCache
	Roles *cache.RoleCache
}

// ApplyRole pushes role to the stored and cached sessions of email so the
// next request sees it without a new sign-in.
func (s Sessions) ApplyRole(ctx context.Context, db *sqlite.DB, email, role string) error {
	if err := s.rewrite(ctx, db, email, role); err != nil {
		return err
	}
	if s.Roles != nil {
		s.Roles.Add(email, role)
	}
	return nil
}

// Forget drops the cached role of a deleted user. Open sessions drop to
// the user role.
func (s Sessions) Forget(ctx context.Context, db *sqlite.DB, email string) error {
	if s.Roles != nil {
		s.Roles.Delete(email)
	}
	return s.rewrite(ctx, db, email, rbac.RoleUser)
}

func (s Sessions) rewrite(ctx context.Context, db *sqlite.DB, email, role string) error {
	if err := login.UpdateSessionRoles(ctx, db, email, role); err != nil {
		return fmt.Errorf("update stored sessions: %w", err)
	}
	if s.Cache == nil {
		return nil
	}
	for _, session := range s.Cache.SessionsForEmail(email) {
		session.Role = role
		session.UserRoles = []string{role}
		session.ScreenPermissions = nil
		s.Cache.AddSession(session)
	}
	return nil
}
