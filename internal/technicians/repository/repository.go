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

const technicianNotFoundMsg = "technician not found"

const selectTechnician = `
	SELECT t.id, t.slug, t.first_name, t.last_name, t.email, t.rut, t.phone, t.user_id,
		t.service_id, s.title, t.specialty, t.active, t.created_at
	FROM technicians t
	LEFT JOIN service_categories s ON s.id = t.service_id`

type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, p CreateParams) (Technician, error) {
	var id int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO technicians (slug, first_name, last_name, email, rut, phone, user_id, service_id, specialty)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		p.Slug, p.FirstName, p.LastName, p.Email, p.RUT, p.Phone, p.UserID, p.ServiceID, p.Specialty,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return Technician{}, apperr.Conflict("a technician with this email, RUT or slug already exists")
	}
	if err != nil {
		return Technician{}, fmt.Errorf("insert technician: %w", err)
	}
	return scanTechnician(db.Conn(ctx, r.pool).QueryRow(ctx, selectTechnician+` WHERE t.id = $1`, id))
}

func (r *Repo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM technicians WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check technician slug: %w", err)
	}
	return exists, nil
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (Technician, error) {
	return scanTechnician(db.Conn(ctx, r.pool).QueryRow(ctx, selectTechnician+` WHERE t.slug = $1`, slug))
}

func (r *Repo) GetByUserID(ctx context.Context, userID int64) (Technician, error) {
	return scanTechnician(db.Conn(ctx, r.pool).QueryRow(ctx, selectTechnician+` WHERE t.user_id = $1 AND t.active`, userID))
}

func (r *Repo) FirstActive(ctx context.Context, serviceID *int64) (Technician, error) {
	return scanTechnician(db.Conn(ctx, r.pool).QueryRow(ctx, selectTechnician+`
		WHERE t.active
		ORDER BY (t.service_id IS NOT DISTINCT FROM $1) DESC, t.first_name, t.last_name, t.id
		LIMIT 1`, serviceID))
}

func (r *Repo) List(ctx context.Context, activeOnly bool) ([]Technician, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, selectTechnician+`
		WHERE ($1 = false OR t.active)
		ORDER BY t.first_name, t.last_name, t.id`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	defer rows.Close()

	var items []Technician
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *Repo) SetActive(ctx context.Context, slug string, active bool) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE technicians SET active = $2 WHERE slug = $1`, slug, active)
	if err != nil {
		return fmt.Errorf("update technician: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(technicianNotFoundMsg)
	}
	return nil
}

func scanTechnician(row pgx.Row) (Technician, error) {
	var t Technician
	err := row.Scan(&t.ID, &t.Slug, &t.FirstName, &t.LastName, &t.Email, &t.RUT, &t.Phone, &t.UserID,
		&t.ServiceID, &t.ServiceTitle, &t.Specialty, &t.Active, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Technician{}, apperr.NotFound(technicianNotFoundMsg)
	}
	if err != nil {
		return Technician{}, fmt.Errorf("scan technician: %w", err)
	}
	return t, nil
}

var _ Repository = (*Repo)(nil)
