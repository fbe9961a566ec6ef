package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/rbac"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const permissionCacheTTL = 10 * time.Minute

func permissionCacheKey(role string) string { return "perm:" + role }

type RoleService interface {
	// Permissions returns the permission names granted to a role.
	Permissions(ctx context.Context, role string) ([]string, error)
	Has(ctx context.Context, role, permission string) (bool, error)
	List(ctx context.Context) ([]dto.RoleResponse, error)
	Create(ctx context.Context, req dto.CreateRoleRequest) (*dto.RoleResponse, error)
	UpdatePermissions(ctx context.Context, name string, req dto.UpdatePermissionsRequest) (*dto.RoleResponse, error)
	// SeedDefaults applies the embedded role matrix. Safe to run on every start.
	SeedDefaults(ctx context.Context) error
}

type roleService struct {
	repo repository.RoleRepository
	rdb  *redis.Client // nil disables the permission cache
}

func NewRoleService(repo repository.RoleRepository, rdb *redis.Client) RoleService {
	return &roleService{repo: repo, rdb: rdb}
}

func (s *roleService) Permissions(ctx context.Context, role string) ([]string, error) {
	if role == rbac.AdminRole {
		return append([]string(nil), rbac.All...), nil
	}

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, permissionCacheKey(role)).Bytes(); err == nil {
			var perms []string
			if json.Unmarshal(cached, &perms) == nil {
				return perms, nil
			}
		}
	}

	r, err := s.repo.FindByName(ctx, role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	perms := r.PermissionNames()
	sort.Strings(perms)

	if s.rdb != nil {
		if b, err := json.Marshal(perms); err == nil {
			_ = s.rdb.Set(context.Background(), permissionCacheKey(role), b, permissionCacheTTL).Err()
		}
	}
	return perms, nil
}

func (s *roleService) Has(ctx context.Context, role, permission string) (bool, error) {
	perms, err := s.Permissions(ctx, role)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

func (s *roleService) List(ctx context.Context) ([]dto.RoleResponse, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RoleResponse, len(roles))
	for i := range roles {
		out[i] = roleToResponse(&roles[i])
	}
	return out, nil
}

func (s *roleService) Create(ctx context.Context, req dto.CreateRoleRequest) (*dto.RoleResponse, error) {
	if err := checkPermissionNames(req.Permissions); err != nil {
		return nil, err
	}
	role := &model.Role{Name: req.Name, Description: req.Description}
	for _, p := range dedupe(req.Permissions) {
		role.Permissions = append(role.Permissions, model.RoleHasPermission{Permission: p})
	}
	if err := s.repo.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("role %s: %w", req.Name, fromRepo(err))
	}
	resp := roleToResponse(role)
	return &resp, nil
}

func (s *roleService) UpdatePermissions(ctx context.Context, name string, req dto.UpdatePermissionsRequest) (*dto.RoleResponse, error) {
	if name == rbac.AdminRole {
		return nil, fmt.Errorf("%w: the admin role always has every permission", ErrValidation)
	}
	if err := checkPermissionNames(req.Permissions); err != nil {
		return nil, err
	}
	role, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("role %s: %w", name, fromRepo(err))
	}
	if err := s.repo.ReplacePermissions(ctx, role.ID, dedupe(req.Permissions)); err != nil {
		return nil, err
	}
	s.invalidate(ctx, name)

	role, err = s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, fromRepo(err)
	}
	resp := roleToResponse(role)
	return &resp, nil
}

func (s *roleService) SeedDefaults(ctx context.Context) error {
	defs, err := rbac.Defaults()
	if err != nil {
		return err
	}
	for _, d := range defs {
		if err := s.repo.Ensure(ctx, d.Name, d.Description, d.Permissions); err != nil {
			return fmt.Errorf("seed role %s: %w", d.Name, err)
		}
		s.invalidate(ctx, d.Name)
	}
	log.Info().Int("roles", len(defs)).Msg("default roles ensured")
	return nil
}

func (s *roleService) invalidate(ctx context.Context, role string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, permissionCacheKey(role)).Err(); err != nil {
		log.Warn().Err(err).Str("role", role).Msg("permission cache invalidation failed")
	}
}

func checkPermissionNames(perms []string) error {
	for _, p := range perms {
		if !rbac.Known(p) {
			return fmt.Errorf("%w: unknown permission %q", ErrValidation, p)
		}
	}
	return nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func roleToResponse(r *model.Role) dto.RoleResponse {
	perms := r.PermissionNames()
	if r.Name == rbac.AdminRole {
		perms = append([]string(nil), rbac.All...)
	}
	sort.Strings(perms)
	return dto.RoleResponse{ID: r.ID, Name: r.Name, Description: r.Description, Permissions: perms}
}
