package cache

import (
	"strings"
	"sync"
	"time"
)

// RoleCache caches backend roles by lower-cased email so a session can be
// created without a round trip on every sign-in.
type RoleCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	roles map[string]roleEntry
}

type roleEntry struct {
	role    string
	expires time.Time
}

func NewRoleCache(ttl time.Duration) *RoleCache {
	return &RoleCache{ttl: ttl, roles: make(map[string]roleEntry)}
}

func (c *RoleCache) Add(email, role string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roles[strings.ToLower(email)] = roleEntry{role: role, expires: time.Now().Add(c.ttl)}
}

// Replace swaps the whole cache for a freshly loaded user list.
func (c *RoleCache) Replace(roles map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	expires := time.Now().Add(c.ttl)
	c.roles = make(map[string]roleEntry, len(roles))
	for email, role := range roles {
		c.roles[strings.ToLower(email)] = roleEntry{role: role, expires: expires}
	}
}

func (c *RoleCache) Get(email string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.roles[strings.ToLower(email)]
	if !ok || (c.ttl > 0 && time.Now().After(e.expires)) {
		return "", false
	}
	return e.role, true
}

func (c *RoleCache) Delete(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.roles, strings.ToLower(email))
}
