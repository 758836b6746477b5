package main

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Taikiy49/FS-Geolabs/infrastructure/backend"
	"github.com/Taikiy49/FS-Geolabs/infrastructure/rbac"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Administer portal roles in the backend",
}

var rolesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users and their roles",
	Args:  cobra.NoArgs,
	RunE:  runRolesList,
}

var rolesSetCmd = &cobra.Command{
	Use:   "set EMAIL ROLE",
	Short: "Register EMAIL if needed and set its role (owner, admin or user)",
	Args:  cobra.ExactArgs(2),
	RunE:  runRolesSet,
}

func init() {
	rolesCmd.AddCommand(rolesListCmd, rolesSetCmd)
}

func runRolesList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newBackend(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	users, err := client.Users(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	return printRoles(cmd, users)
}

func printRoles(cmd *cobra.Command, users []backend.UserRole) error {
	slices.SortFunc(users, func(a, b backend.UserRole) int {
		return strings.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email))
	})
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tROLE")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\n", u.Email, rbac.BackendRole(u.Role))
	}
	return tw.Flush()
}

// parseRole accepts the portal and backend spellings of a role.
func parseRole(s string) (string, error) {
	role := strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(rbac.Roles, role) {
		return "", fmt.Errorf("unknown role %q, want one of %s", s, strings.Join(rbac.Roles, ", "))
	}
	return role, nil
}

func runRolesSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(args[0]))
	role, err := parseRole(args[1])
	if err != nil {
		return err
	}
	if cfg.Auth.SuperOwner != "" && strings.EqualFold(email, cfg.Auth.SuperOwner) && role != rbac.RoleOwner {
		return fmt.Errorf("%s is the super owner and stays an owner", email)
	}
	client, err := newBackend(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	if err := client.RegisterUser(ctx, email); err != nil && !backend.IsStatus(err, http.StatusConflict) {
		return fmt.Errorf("register %s: %w", email, err)
	}
	if err := client.UpdateRole(ctx, email, rbac.BackendRole(role)); err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, rbac.BackendRole(role))
	return nil
}
