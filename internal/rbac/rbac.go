// Package rbac names the permissions checked by the API and carries the
// default role matrix seeded on startup.
package rbac

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	ProductionsView      = "productions.view"
	ProductionsManage    = "productions.manage"
	RegistersView        = "registers.view"
	RegistersGenerate    = "registers.generate"
	ComplaintsView       = "complaints.view"
	ComplaintsManage     = "complaints.manage"
	ComplaintsDelete     = "complaints.delete"
	InvestigationsManage = "investigations.manage"
	UsersManage          = "users.manage"
	RolesManage          = "roles.manage"
	ReferenceManage      = "reference.manage"
	ExportsDownload      = "exports.download"
)

// AdminRole is granted every permission regardless of its stored rows.
const AdminRole = "admin"

// Wildcard in a role definition expands to All.
const Wildcard = "*"

// All lists every known permission.
var All = []string{
	ProductionsView, ProductionsManage,
	RegistersView, RegistersGenerate,
	ComplaintsView, ComplaintsManage, ComplaintsDelete,
	InvestigationsManage,
	UsersManage, RolesManage,
	ReferenceManage, ExportsDownload,
}

// Known reports whether p is a permission the API checks.
func Known(p string) bool {
	for _, k := range All {
		if k == p {
			return true
		}
	}
	return false
}

// RoleDef is one entry of the default matrix.
type RoleDef struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

type matrix struct {
	Roles []RoleDef `yaml:"roles"`
}

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults parses the embedded role matrix and expands wildcards.
func Defaults() ([]RoleDef, error) {
	return Parse(defaultsYAML)
}

// Parse decodes a role matrix document. Unknown permission names are rejected.
func Parse(doc []byte) ([]RoleDef, error) {
	var m matrix
	if err := yaml.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("rbac: decode matrix: %w", err)
	}
	for i := range m.Roles {
		var expanded []string
		for _, p := range m.Roles[i].Permissions {
			if p == Wildcard {
				expanded = append(expanded, All...)
				continue
			}
			if !Known(p) {
				return nil, fmt.Errorf("rbac: role %s: unknown permission %q", m.Roles[i].Name, p)
			}
			expanded = append(expanded, p)
		}
		m.Roles[i].Permissions = expanded
	}
	return m.Roles, nil
}
