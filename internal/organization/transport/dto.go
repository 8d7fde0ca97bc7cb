package transport

import "time"

type CreateCompanyRequest struct {
	ClienteID int64  `json:"clienteId" validate:"required,min=1"`
	Name      string `json:"name" validate:"required,notblank,max=200"`
}

type CreateDepartmentRequest struct {
	CompanyID *int64 `json:"companyId"`
	Name      string `json:"name" validate:"required,notblank,max=120"`
}

type CreateCostCenterRequest struct {
	CompanyID *int64 `json:"companyId"`
	Code      string `json:"code" validate:"required,notblank,max=30"`
	Name      string `json:"name" validate:"required,notblank,max=120"`
}

type SearchRequest struct {
	CompanyID *int64 `form:"companyId" validate:"omitempty,min=1"`
	Search    string `form:"search" validate:"max=100"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

type CompanyResponse struct {
	ID        int64     `json:"id"`
	ClienteID int64     `json:"clienteId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type DepartmentResponse struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"companyId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type CostCenterResponse struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"companyId"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
