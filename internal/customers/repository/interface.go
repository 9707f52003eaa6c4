package repository

import (
	"context"
	"time"
)

// Customer is a person who requests quotes. Provisioned customers get a
// random password and log in through the identity provider's reset flow.
type Customer struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	Phone     string    `db:"phone"`
	RUT       *string   `db:"rut"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

// FullName returns "first last", or the username when both are empty.
func (c Customer) FullName() string {
	name := c.FirstName
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	if name == "" {
		return c.Username
	}
	return name
}

// CreateParams holds the columns written when provisioning a customer.
type CreateParams struct {
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Phone        string
	PasswordHash string
}

// Repository defines customer persistence.
type Repository interface {
	GetByID(ctx context.Context, id int64) (Customer, error)
	GetByEmail(ctx context.Context, email string) (Customer, error)
	// TryCreate inserts the customer unless the username or email is taken.
	// created is false when a unique constraint stopped the insert.
	TryCreate(ctx context.Context, params CreateParams) (c Customer, created bool, err error)
	FillPhone(ctx context.Context, id int64, phone string) error
}
