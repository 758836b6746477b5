package backend

import (
	"context"
	"net/http"
)

// Backend role names.
const (
	RoleOwner = "Owner"
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// UserRole is one row of /api/users.
type UserRole struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Users lists every registered user with their role.
func (c *Client) Users(ctx context.Context) ([]UserRole, error) {
	var out []UserRole
	if err := c.doJSON(ctx, http.MethodGet, "/api/users", nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []UserRole{}
	}
	return out, nil
}

// RegisterUser creates email with the default User role when it is not
// already known. It is safe to call on every sign-in.
func (c *Client) RegisterUser(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/register-user", nil, map[string]string{"email": email}, nil)
}

// UpdateRole sets the role of email.
func (c *Client) UpdateRole(ctx context.Context, email, role string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/update-role", nil, map[string]string{"email": email, "role": role}, nil)
}

// DeleteUser removes email from the user table.
func (c *Client) DeleteUser(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/delete-user", nil, map[string]string{"email": email}, nil)
}
