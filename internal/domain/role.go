package domain

import (
	"context"
	"sort"
)

// Seeded role slugs.
const (
	AdminRoleSlug = "administrator"
	UserRoleSlug  = "user"
)

// Permission resources.
const (
	ResourceUser         = "user"
	ResourceUserPassword = "user/password"
	ResourceRoles        = "roles"
	ResourceEvents       = "events"
	ResourceSessions     = "sessions"
	ResourceAssistants   = "assistants"
)

// Permission verbs.
const (
	VerbCreate   = "create"
	VerbUpdate   = "update"
	VerbUpdateMe = "update_me"
	VerbGet      = "get"
	VerbList     = "list"
	VerbDelete   = "delete"
	VerbChange   = "change"
	VerbChangeMe = "change_me"
)

// Permission grants a set of verbs on one resource to a role.
type Permission struct {
	ID       string   `json:"id,omitempty"`
	RoleID   string   `json:"role_id,omitempty"`
	Resource string   `json:"resource"`
	Verbs    []string `json:"verbs"`
}

// Role is a named bundle of permissions.
// swagger:model Role
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Permissions []Permission `json:"permissions"`
}

// PermissionSet maps resource -> verb set. Built once per token.
type PermissionSet map[string]map[string]struct{}

// NewPermissionSet flattens the role permissions into a lookup set.
func NewPermissionSet(perms []Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		verbs, ok := set[p.Resource]
		if !ok {
			verbs = make(map[string]struct{}, len(p.Verbs))
			set[p.Resource] = verbs
		}
		for _, v := range p.Verbs {
			verbs[v] = struct{}{}
		}
	}
	return set
}

// PermissionSetFromMap rebuilds a set from its token payload form.
func PermissionSetFromMap(m map[string][]string) PermissionSet {
	set := make(PermissionSet, len(m))
	for resource, verbs := range m {
		vs := make(map[string]struct{}, len(verbs))
		for _, v := range verbs {
			vs[v] = struct{}{}
		}
		set[resource] = vs
	}
	return set
}

// Allows reports whether verb is granted on resource.
func (p PermissionSet) Allows(resource, verb string) bool {
	verbs, ok := p[resource]
	if !ok {
		return false
	}
	_, ok = verbs[verb]
	return ok
}

// Map returns the token payload form with verbs sorted.
func (p PermissionSet) Map() map[string][]string {
	out := make(map[string][]string, len(p))
	for resource, verbs := range p {
		vs := make([]string, 0, len(verbs))
		for v := range verbs {
			vs = append(vs, v)
		}
		sort.Strings(vs)
		out[resource] = vs
	}
	return out
}

// Claims is the authenticated principal carried by a token.
type Claims struct {
	UserID      string
	Permissions PermissionSet
}

// Authorize fails with PermissionDenied unless claims grant verb on resource.
func Authorize(claims *Claims, resource, verb string) error {
	if claims == nil || !claims.Permissions.Allows(resource, verb) {
		return PermissionDenied(resource, verb)
	}
	return nil
}

// RoleRepository defines the interface for role storage.
type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	GetByID(ctx context.Context, id string) (*Role, error)
	GetBySlug(ctx context.Context, slug string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	ReplacePermissions(ctx context.Context, roleID string, perms []Permission) error
}

// RoleService manages roles and their permission sets.
type RoleService interface {
	ListRoles(ctx context.Context) ([]*Role, error)
	GetRoleBySlug(ctx context.Context, slug string) (*Role, error)
	CreateRole(ctx context.Context, name string, perms []Permission) (*Role, error)
	UpdateRolePermissions(ctx context.Context, slug string, perms []Permission) (*Role, error)
}
