package transport

import "time"

// CreateTechnicianRequest is the request body for registering a technician.
type CreateTechnicianRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	RUT       string `json:"rut" validate:"required,rut"`
	Phone     string `json:"phone" validate:"omitempty,clphone"`
	UserID    *int64 `json:"userId" validate:"omitempty,gt=0"`
	ServiceID *int64 `json:"serviceId" validate:"omitempty,gt=0"`
	Specialty string `json:"specialty" validate:"max=100"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type TechnicianResponse struct {
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	RUT       string    `json:"rut"`
	Phone     string    `json:"phone,omitempty"`
	ServiceID *int64    `json:"serviceId,omitempty"`
	Specialty string    `json:"specialty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

type ListResponse struct {
	Items []TechnicianResponse `json:"items"`
}
