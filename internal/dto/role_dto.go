package dto

type CreateRoleRequest struct {
	Name        string   `json:"name"        validate:"required,min=2,max=50"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions" validate:"dive,min=3,max=80"`
}

type UpdatePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required,dive,min=3,max=80"`
}

type RoleResponse struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}
