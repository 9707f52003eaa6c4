package repository

import (
	"context"
	"errors"
	"fmt"

	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const customerNotFoundMsg = "customer not found"

const customerColumns = `id, username, email, first_name, last_name, phone, rut, role, created_at`

// Repo is the Postgres implementation of Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) GetByID(ctx context.Context, id int64) (Customer, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (Customer, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE lower(email) = lower($1)`, email)
	return scanCustomer(row)
}

func (r *Repo) TryCreate(ctx context.Context, p CreateParams) (Customer, bool, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO customers (username, email, first_name, last_name, phone, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6, 'CLIENTE')
		ON CONFLICT DO NOTHING
		RETURNING `+customerColumns,
		p.Username, p.Email, p.FirstName, p.LastName, p.Phone, p.PasswordHash)

	c, err := scanCustomer(row)
	if apperr.Is(err, apperr.KindNotFound) {
		return Customer{}, false, nil
	}
	if err != nil {
		return Customer{}, false, err
	}
	return c, true, nil
}

func (r *Repo) FillPhone(ctx context.Context, id int64, phone string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE customers SET phone = $2, updated_at = now() WHERE id = $1 AND phone = ''`, id, phone)
	if err != nil {
		return fmt.Errorf("fill customer phone: %w", err)
	}
	return nil
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Username, &c.Email, &c.FirstName, &c.LastName, &c.Phone, &c.RUT, &c.Role, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, apperr.NotFound(customerNotFoundMsg)
	}
	if err != nil {
		return Customer{}, fmt.Errorf("scan customer: %w", err)
	}
	return c, nil
}

var _ Repository = (*Repo)(nil)
