package dto

type CreateCompanyRequest struct {
	Name    string  `json:"name"    validate:"required,min=2,max=120"`
	Code    string  `json:"code"    validate:"required,min=2,max=20"`
	Address *string `json:"address" validate:"omitempty,max=255"`
}

type UpdateCompanyRequest struct {
	Name    *string `json:"name"    validate:"omitempty,min=2,max=120"`
	Address *string `json:"address" validate:"omitempty,max=255"`
	Active  *bool   `json:"active"`
}

type CompanyResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Code    string  `json:"code"`
	Address *string `json:"address"`
	Active  bool    `json:"active"`
}

type ProvinceResponse struct {
	ID   uint   `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}
