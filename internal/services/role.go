package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"eventhub/internal/domain"
)

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases name and collapses every run of non-alphanumerics into "-".
func slugify(name string) string {
	s := slugInvalidChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(s, "-")
}

type roleService struct {
	roleRepo       domain.RoleRepository
	contextTimeout time.Duration
}

func NewRoleService(roleRepo domain.RoleRepository, timeout time.Duration) domain.RoleService {
	return &roleService{roleRepo: roleRepo, contextTimeout: timeout}
}

func validatePermissions(perms []domain.Permission) error {
	for _, p := range perms {
		if strings.TrimSpace(p.Resource) == "" {
			return domain.Validationf("permission resource is required")
		}
		if len(p.Verbs) == 0 {
			return domain.Validationf("permission %s must grant at least one verb", p.Resource)
		}
		for _, v := range p.Verbs {
			if strings.TrimSpace(v) == "" {
				return domain.Validationf("permission %s has an empty verb", p.Resource)
			}
		}
	}
	return nil
}

func (s *roleService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	if roles == nil {
		roles = []*domain.Role{}
	}
	return roles, nil
}

func (s *roleService) getBySlug(ctx context.Context, slug string) (*domain.Role, error) {
	role, err := s.roleRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundf("role %s not found", slug)
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

func (s *roleService) GetRoleBySlug(ctx context.Context, slug string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.getBySlug(ctx, slug)
}

func (s *roleService) CreateRole(ctx context.Context, name string, perms []domain.Permission) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	slug := slugify(name)
	if slug == "" {
		return nil, domain.Validationf("role name is required")
	}
	if err := validatePermissions(perms); err != nil {
		return nil, err
	}
	role := &domain.Role{Name: strings.TrimSpace(name), Slug: slug, Permissions: perms}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		if errors.Is(err, domain.ErrDuplicateSlug) {
			return nil, domain.ErrDuplicateSlug
		}
		return nil, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, slug string, perms []domain.Permission) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	role, err := s.getBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := validatePermissions(perms); err != nil {
		return nil, err
	}
	if err := s.roleRepo.ReplacePermissions(ctx, role.ID, perms); err != nil {
		return nil, fmt.Errorf("replace permissions: %w", err)
	}
	role.Permissions = perms
	return role, nil
}
