package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Session is used by middleware and identity handlers.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID                string         `bun:"id,pk"`
	Email             string         `bun:"email,notnull"`
	Role              string         `bun:"role,notnull"`
	UserRoles         []string       `bun:"-"`
	ScreenPermissions map[string]int `bun:"-"`
	ExpiresAt         time.Time      `bun:"expires_at,notnull"`
	CreatedAt         time.Time      `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt         time.Time      `bun:"updated_at,notnull,default:current_timestamp"`
}

// Expired returns true when the session expiry time has passed.
func (s Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// HasScreen reports whether the session may see the screen with the given
// resource code.
func (s Session) HasScreen(code string) bool {
	return s.ScreenPermissions[code] == 1
}

// AuditLog captures immutable change history for commands issued through
// the portal.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         int64     `bun:"id,pk,autoincrement"`
	Actor      string    `bun:"actor,notnull"`
	Action     string    `bun:"action,notnull"`
	EntityType string    `bun:"entity_type,notnull"`
	EntityID   string    `bun:"entity_id,notnull"`
	BeforeJSON string    `bun:"before_json"`
	AfterJSON  string    `bun:"after_json"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// UploadRun records one finished upload queue item.
type UploadRun struct {
	bun.BaseModel `bun:"table:upload_runs,alias:ur"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Actor     string    `bun:"actor,notnull"`
	Channel   string    `bun:"channel,notnull"`
	Target    string    `bun:"target,notnull"`
	FileName  string    `bun:"file_name,notnull"`
	SizeBytes int64     `bun:"size_bytes,notnull,default:0"`
	Pages     int       `bun:"pages,notnull,default:0"`
	Status    string    `bun:"status,notnull"`
	Message   string    `bun:"message"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// SameEmail compares addresses case-insensitively.
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
