package transport

import "time"

type CreateEmployeeRequest struct {
	CompanyID    *int64 `json:"companyId"`
	DepartmentID *int64 `json:"departmentId" validate:"omitempty,min=1"`
	FirstName    string `json:"firstName" validate:"required,notblank,max=100"`
	LastName     string `json:"lastName" validate:"required,notblank,max=100"`
	Email        string `json:"email" validate:"required,email,max=254"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
	Status       string `json:"status" validate:"omitempty,oneof=active on_leave terminated"`
}

type ListEmployeesRequest struct {
	CompanyID    *int64 `form:"companyId" validate:"omitempty,min=1"`
	DepartmentID *int64 `form:"departmentId" validate:"omitempty,min=1"`
	Search       string `form:"search" validate:"max=100"`
	Status       string `form:"status" validate:"omitempty,oneof=active on_leave terminated"`
	Page         int    `form:"page" validate:"omitempty,min=1"`
	PageSize     int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type EmployeeResponse struct {
	ID                 int64      `json:"id"`
	CompanyID          int64      `json:"companyId"`
	DepartmentID       *int64     `json:"departmentId,omitempty"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone,omitempty"`
	Status             string     `json:"status"`
	ExternalIdentityID *string    `json:"externalIdentityId,omitempty"`
	IdentityLinkedAt   *time.Time `json:"identityLinkedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type EmployeeListResponse struct {
	Items      []EmployeeResponse `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalPages int                `json:"totalPages"`
}
