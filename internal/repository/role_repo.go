package repository

import (
	"context"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRepository interface {
	List(ctx context.Context) ([]model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	Create(ctx context.Context, role *model.Role) error
	ReplacePermissions(ctx context.Context, roleID uint, permissions []string) error
	// Ensure creates the role when missing and adds any permission it lacks.
	// Existing permissions are never removed.
	Ensure(ctx context.Context, name, description string, permissions []string) error
}

type roleRepo struct{ db *gorm.DB }

func NewRoleRepository(db *gorm.DB) RoleRepository { return &roleRepo{db: db} }

func (r *roleRepo) List(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).Preload("Permissions").Order("name ASC").Find(&roles).Error
	return roles, err
}

func (r *roleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Preload("Permissions").Where("name = ?", name).First(&role).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *roleRepo) Create(ctx context.Context, role *model.Role) error {
	return translate(r.db.WithContext(ctx).Create(role).Error)
}

func (r *roleRepo) ReplacePermissions(ctx context.Context, roleID uint, permissions []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&model.RoleHasPermission{}).Error; err != nil {
			return err
		}
		if len(permissions) == 0 {
			return nil
		}
		return tx.Create(permissionRows(roleID, permissions)).Error
	})
}

func (r *roleRepo) Ensure(ctx context.Context, name, description string, permissions []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role := model.Role{Name: name, Description: description}
		if err := tx.Where(model.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return err
		}
		if len(permissions) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(permissionRows(role.ID, permissions)).Error
	})
}

func permissionRows(roleID uint, permissions []string) []model.RoleHasPermission {
	rows := make([]model.RoleHasPermission, 0, len(permissions))
	seen := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		if seen[p] {
			continue
		}
		seen[p] = true
		rows = append(rows, model.RoleHasPermission{RoleID: roleID, Permission: p})
	}
	return rows
}
