package cache

import (
	"sync"

	"github.com/Taikiy49/FS-Geolabs/models"
)

// UserSessionCache stores sessions by token.
type UserSessionCache struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewUserSessionCache() *UserSessionCache {
	return &UserSessionCache{sessions: make(map[string]models.Session)}
}

func (c *UserSessionCache) AddSession(s models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s.ID] = s
}

func (c *UserSessionCache) FindSessionBySessionToken(token string) (models.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[token]
	return s, ok
}

func (c *UserSessionCache) DeleteSessionBySessionToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, token)
}

// SessionsForEmail returns the cached sessions of one user, used to push a
// role change to every open session.
func (c *UserSessionCache) SessionsForEmail(email string) []models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Session
	for _, s := range c.sessions {
		if models.SameEmail(s.Email, email) {
			out = append(out, s)
		}
	}
	return out
}

// DeleteExpired drops expired sessions and returns their tokens.
func (c *UserSessionCache) DeleteExpired() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var tokens []string
	for token, s := range c.sessions {
		if s.Expired() {
			tokens = append(tokens, token)
			delete(c.sessions, token)
		}
	}
	return tokens
}
