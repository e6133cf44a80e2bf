// Package rbac builds the role-based access control plugin descriptor.
package rbac

import (
	"context"
	"fmt"

	"github.com/lanternsoft/authbridge/core"
	"github.com/lanternsoft/authbridge/plugin"
)

// Role names a role and the permissions it grants.
type Role struct {
	Name        string
	Permissions []string
}

// Options configures the RBAC plugin.
type Options struct {
	Roles       []Role
	DefaultRole string
}

// New builds the tagged plugin spec.
func New(opts Options) *plugin.Spec {
	roles := make(map[string][]string, len(opts.Roles))
	for _, r := range opts.Roles {
		roles[r.Name] = r.Permissions
	}
	return &plugin.Spec{
		Kind: plugin.KindRBAC,
		Name: "rbac",
		Config: map[string]interface{}{
			"roles":       roles,
			"defaultRole": opts.DefaultRole,
		},
		Init: func(ctx context.Context, fw core.Framework) error {
			if len(roles) == 0 {
				return fmt.Errorf("rbac: at least one role required")
			}
			if opts.DefaultRole != "" {
				if _, ok := roles[opts.DefaultRole]; !ok {
					return fmt.Errorf("rbac: default role %q not declared", opts.DefaultRole)
				}
			}
			return nil
		},
	}
}

// Loose builds the legacy loose-map shape for the structural-sniffing
// ingestion path.
func Loose(opts Options) map[string]interface{} {
	spec := New(opts)
	return map[string]interface{}{
		"name":  spec.Name,
		"roles": spec.Config["roles"],
	}
}

// Can reports whether the role grants the permission. A trailing ":*"
// permission acts as a wildcard for its resource.
func Can(roles map[string][]string, role, permission string) bool {
	for _, p := range roles[role] {
		if p == permission || p == "*" {
			return true
		}
		if len(p) > 2 && p[len(p)-2:] == ":*" &&
			len(permission) >= len(p)-1 && permission[:len(p)-1] == p[:len(p)-1] {
			return true
		}
	}
	return false
}
