package repository

import (
	"context"
	"strings"
	"time"
)

// Technician is a field technician. The slug is immutable once assigned,
// because visits reference technicians by slug only.
type Technician struct {
	ID           int64     `db:"id"`
	Slug         string    `db:"slug"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Email        string    `db:"email"`
	RUT          string    `db:"rut"`
	Phone        string    `db:"phone"`
	UserID       *int64    `db:"user_id"`
	ServiceID    *int64    `db:"service_id"`
	ServiceTitle *string   `db:"service_title"`
	Specialty    string    `db:"specialty"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
}

func (t Technician) FullName() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

// SpecialtyLabel prefers the explicit specialty, then the service title.
func (t Technician) SpecialtyLabel() string {
	if t.Specialty != "" {
		return t.Specialty
	}
	if t.ServiceTitle != nil && *t.ServiceTitle != "" {
		return *t.ServiceTitle
	}
	return "Técnico"
}

type CreateParams struct {
	Slug      string
	FirstName string
	LastName  string
	Email     string
	RUT       string
	Phone     string
	UserID    *int64
	ServiceID *int64
	Specialty string
}

// Repository defines technician persistence.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Technician, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	GetBySlug(ctx context.Context, slug string) (Technician, error)
	GetByUserID(ctx context.Context, userID int64) (Technician, error)
	// FirstActive returns the first active technician ordered by name,
	// preferring one assigned to serviceID when it is set.
	FirstActive(ctx context.Context, serviceID *int64) (Technician, error)
	List(ctx context.Context, activeOnly bool) ([]Technician, error)
	SetActive(ctx context.Context, slug string, active bool) error
}
