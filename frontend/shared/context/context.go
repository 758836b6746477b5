package context

import (
	"context"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
	"github.com/Taikiy49/FS-Geolabs/models"
)

type sessionKey struct{}

type workspaceKey struct{}

func NewContextWithSession(ctx context.Context, session models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func GetSessionFromContext(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(models.Session)
	return s, ok
}

// NewContextWithWorkspace attaches the session workspace.
func NewContextWithWorkspace(ctx context.Context, ws *workspace.Workspace) context.Context {
	return context.WithValue(ctx, workspaceKey{}, ws)
}

func GetWorkspaceFromContext(ctx context.Context) (*workspace.Workspace, bool) {
	ws, ok := ctx.Value(workspaceKey{}).(*workspace.Workspace)
	return ws, ok && ws != nil
}
