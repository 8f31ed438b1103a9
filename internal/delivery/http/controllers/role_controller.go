package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// PermissionRequest is one resource grant in a role payload.
type PermissionRequest struct {
	Resource string   `json:"resource"`
	Verbs    []string `json:"verbs"`
}

func toPermissions(in []PermissionRequest) []domain.Permission {
	out := make([]domain.Permission, 0, len(in))
	for _, p := range in {
		out = append(out, domain.Permission{Resource: p.Resource, Verbs: p.Verbs})
	}
	return out
}

// CreateRoleRequest is the request body for POST /roles. The slug is derived from name.
type CreateRoleRequest struct {
	Name        string              `json:"name"`
	Permissions []PermissionRequest `json:"permissions"`
}

// Validate implements Validator.
func (c CreateRoleRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	return errs
}

// ReplacePermissionsRequest is the request body for PUT /roles/{slug}/permissions.
type ReplacePermissionsRequest struct {
	Permissions []PermissionRequest `json:"permissions"`
}

// RoleSuccessResponse is the success response envelope for endpoints returning one role.
type RoleSuccessResponse struct {
	Data  *domain.Role `json:"data"`
	Error *h.APIError  `json:"error"`
}

// ListRolesSuccessResponse is the success response envelope for GET /roles (200).
type ListRolesSuccessResponse struct {
	Data  []*domain.Role `json:"data"`
	Error *h.APIError    `json:"error"`
}

type RoleController struct {
	Logger  *slog.Logger
	Service domain.RoleService
}

func NewRoleController(logger *slog.Logger, svc domain.RoleService) *RoleController {
	return &RoleController{
		Logger:  logger,
		Service: svc,
	}
}

// ListRoles godoc
// @Summary List roles
// @Description Lists every role with its ordered permission set.
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListRolesSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /roles [get]
func (c *RoleController) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := c.Service.ListRoles(r.Context())
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if roles == nil {
		roles = []*domain.Role{}
	}
	h.WriteJSONSuccess(w, http.StatusOK, roles)
}

// GetRole godoc
// @Summary Get a role by slug
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Role slug"
// @Success 200 {object} controllers.RoleSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /roles/{slug} [get]
func (c *RoleController) GetRole(w http.ResponseWriter, r *http.Request) {
	slug, ok := pathValue(w, r, "slug")
	if !ok {
		return
	}
	role, err := c.Service.GetRoleBySlug(r.Context(), slug)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, role)
}

// CreateRole godoc
// @Summary Create a role
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateRoleRequest true "Role name and permissions"
// @Success 201 {object} controllers.RoleSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (slug in use)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /roles [post]
func (c *RoleController) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	role, err := c.Service.CreateRole(r.Context(), strings.TrimSpace(req.Name), toPermissions(req.Permissions))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, role)
}

// ReplacePermissions godoc
// @Summary Replace a role's permissions
// @Description Replaces the whole ordered permission set. Existing tokens keep their old permissions until they expire.
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Role slug"
// @Param body body ReplacePermissionsRequest true "New permission set"
// @Success 200 {object} controllers.RoleSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /roles/{slug}/permissions [put]
func (c *RoleController) ReplacePermissions(w http.ResponseWriter, r *http.Request) {
	slug, ok := pathValue(w, r, "slug")
	if !ok {
		return
	}
	var req ReplacePermissionsRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	role, err := c.Service.UpdateRolePermissions(r.Context(), slug, toPermissions(req.Permissions))
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, role)
}
