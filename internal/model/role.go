package model

import "time"

// Role groups permission names. The admin role is granted every permission
// regardless of its rows.
type Role struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"type:varchar(50);uniqueIndex;not null"`
	Description string
	Permissions []RoleHasPermission `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type RoleHasPermission struct {
	ID         uint   `gorm:"primaryKey"`
	RoleID     uint   `gorm:"not null;uniqueIndex:idx_role_permission"`
	Permission string `gorm:"type:varchar(80);not null;uniqueIndex:idx_role_permission"`
}

// PermissionNames flattens the loaded permission rows.
func (r *Role) PermissionNames() []string {
	out := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		out = append(out, p.Permission)
	}
	return out
}
