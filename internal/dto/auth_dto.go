package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type CreateUserRequest struct {
	Email      string  `json:"email"      validate:"required,email"`
	Name       string  `json:"name"       validate:"required,min=2,max=100"`
	Password   string  `json:"password"   validate:"required,min=8"`
	Role       string  `json:"role"       validate:"required,min=2,max=50"`
	Department *string `json:"department" validate:"omitempty,max=50"`
	CompanyID  *string `json:"company_id" validate:"omitempty,uuid"`
}

type UpdateUserRequest struct {
	Name       string  `json:"name"       validate:"omitempty,min=2,max=100"`
	Role       string  `json:"role"       validate:"omitempty,min=2,max=50"`
	Department *string `json:"department" validate:"omitempty,max=50"`
	CompanyID  *string `json:"company_id" validate:"omitempty,uuid"`
	Password   string  `json:"password"   validate:"omitempty,min=8"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UserResponse struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	Department *string `json:"department"`
	CompanyID  *string `json:"company_id"`
	Active     bool    `json:"active"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"` // seconds
	User         UserResponse `json:"user"`
	Permissions  []string     `json:"permissions"`
}
