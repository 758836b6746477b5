package cache

import (
	"strings"
	"sync"
)

// Resource is one route a role may call, named by its screen code.
type Resource struct {
	UserResourceCode string
	Path             string
	Method           string
	Role             string
}

// RbacRolesCache holds the route resources registered per role. Routes are
// registered once at startup and read on every request.
type RbacRolesCache struct {
	mu        sync.RWMutex
	resources map[string][]Resource
	seen      map[Resource]struct{}
	codes     map[string]struct{}
}

func NewRbacRolesCache() *RbacRolesCache {
	return &RbacRolesCache{
		resources: make(map[string][]Resource),
		seen:      make(map[Resource]struct{}),
		codes:     make(map[string]struct{}),
	}
}

// Add registers r for role. Registering the same resource twice is a no-op.
func (c *RbacRolesCache) Add(role string, r Resource) {
	r.Role = strings.ToLower(role)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.seen[r]; dup {
		return
	}
	c.seen[r] = struct{}{}
	c.resources[r.Role] = append(c.resources[r.Role], r)
	c.codes[r.UserResourceCode] = struct{}{}
}

// Resources returns the union of the resources of roles.
func (c *RbacRolesCache) Resources(roles ...string) []Resource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Resource
	for _, role := range roles {
		out = append(out, c.resources[strings.ToLower(role)]...)
	}
	return out
}

// Codes is the screen permission set of roles, as stored on a session.
func (c *RbacRolesCache) Codes(roles ...string) map[string]int {
	out := make(map[string]int)
	for _, res := range c.Resources(roles...) {
		out[res.UserResourceCode] = 1
	}
	return out
}

// AllCodes grants every registered screen. Owners get this set.
func (c *RbacRolesCache) AllCodes() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int, len(c.codes))
	for code := range c.codes {
		out[code] = 1
	}
	return out
}
