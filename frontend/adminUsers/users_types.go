package adminusers

import (
	"errors"
	"strings"

	"github.com/Taikiy49/FS-Geolabs/frontend/shared/nav"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
	"github.com/Taikiy49/FS-Geolabs/models"
)

var (
	ErrEmailRequired        = errors.New("email is required")
	ErrInvalidEmail         = errors.New("enter a full email address")
	ErrSuperOwner           = errors.New("the super owner cannot be changed or removed")
	ErrOwnerOnly            = errors.New("only an owner can grant or change the owner role")
	ErrSelf                 = errors.New("you cannot change or remove your own account")
	ErrConfirmationMismatch = errors.New("confirmation text does not match, nothing deleted")
)

// UserView is one row of the users table.
type UserView struct {
	Email      string
	Role       string
	SuperOwner bool
	Self       bool
	Editable   bool
}

type PageData struct {
	Top          nav.TopNavData
	Users        []UserView
	LoadError    string
	ActorRole    string
	Roles        []string
	Audit        []models.AuditLog
	Status       string
	ErrorMessage string
}

// Policy holds the rules for changing other users.
type Policy struct {
	SuperOwner string
}

func (p Policy) isSuperOwner(email string) bool {
	return p.SuperOwner != "" && models.SameEmail(email, p.SuperOwner)
}

// NormalizeEmail trims and lower-cases email and checks its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmailRequired
	}
	at := strings.IndexByte(email, '@')
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// CheckRoleChange validates actor setting target from current to next.
func (p Policy) CheckRoleChange(actor, actorRole, target, current, next string) error {
	switch {
	case p.isSuperOwner(target):
		return ErrSuperOwner
	case models.SameEmail(actor, target):
		return ErrSelf
	case rbac.NormalizeRole(actorRole) != rbac.RoleOwner &&
		(rbac.NormalizeRole(next) == rbac.RoleOwner || rbac.NormalizeRole(current) == rbac.RoleOwner):
		return ErrOwnerOnly
	}
	return nil
}

// DeletePhrase is what an admin types to delete email.
func DeletePhrase(email string) string {
	return "DELETE " + email
}

// CheckDelete validates actor deleting target with the typed phrase.
func (p Policy) CheckDelete(actor, actorRole, target, current, typed string) error {
	if err := p.CheckRoleChange(actor, actorRole, target, current, rbac.RoleUser); err != nil {
		return err
	}
	if strings.TrimSpace(typed) != DeletePhrase(target) {
		return ErrConfirmationMismatch
	}
	return nil
}

// Views builds the table rows, marking what actor may change.
func (p Policy) Views(users []backend.UserRole, actor, actorRole string) []UserView {
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		role := rbac.NormalizeRole(u.Role)
		v := UserView{
			Email:      u.Email,
			Role:       role,
			SuperOwner: p.isSuperOwner(u.Email),
			Self:       models.SameEmail(actor, u.Email),
		}
		v.Editable = p.CheckRoleChange(actor, actorRole, u.Email, role, role) == nil
		out = append(out, v)
	}
	return out
}

// RoleOf looks email up in users. Unknown users are plain users.
func RoleOf(users []backend.UserRole, email string) string {
	for _, u := range users {
		if models.SameEmail(u.Email, email) {
			return rbac.NormalizeRole(u.Role)
		}
	}
	return rbac.RoleUser
}
