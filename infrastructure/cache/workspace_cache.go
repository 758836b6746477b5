package cache

import (
	"sync"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/workspace"
)

// WorkspaceCache maps session tokens to live workspaces.
type WorkspaceCache struct {
	mu         sync.Mutex
	workspaces map[string]*workspace.Workspace
}

func NewWorkspaceCache() *WorkspaceCache {
	return &WorkspaceCache{workspaces: make(map[string]*workspace.Workspace)}
}

// GetOrCreate returns the workspace for token, building it with create on
// first use.
func (c *WorkspaceCache) GetOrCreate(token string, create func() *workspace.Workspace) *workspace.Workspace {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ws, ok := c.workspaces[token]; ok && !ws.Closed() {
		return ws
	}
	ws := create()
	c.workspaces[token] = ws
	return ws
}

func (c *WorkspaceCache) Get(token string) (*workspace.Workspace, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ws, ok := c.workspaces[token]
	return ws, ok
}

// Close tears down and forgets the workspace for token.
func (c *WorkspaceCache) Close(token string) {
	c.mu.Lock()
	ws, ok := c.workspaces[token]
	delete(c.workspaces, token)
	c.mu.Unlock()
	if ok {
		ws.Close()
	}
}

// CloseAll tears down every workspace. Used at shutdown.
func (c *WorkspaceCache) CloseAll() {
	c.mu.Lock()
	all := c.workspaces
	c.workspaces = make(map[string]*workspace.Workspace)
	c.mu.Unlock()
	for _, ws := range all {
		ws.Close()
	}
}

func (c *WorkspaceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.workspaces)
}
