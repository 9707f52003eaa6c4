package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/clock"
	"fm_servicios_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	visitNotFoundMsg  = "visit not found"
	defaultAgendaSize = 200
)

const visitColumns = `id, technician_slug, technician_name, quote_id, customer_name, customer_email,
	region, comuna, visit_date, visit_time, address, notes, created_at, updated_at`

type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) LockTechnician(ctx context.Context, slug string) error {
	if !db.InTx(ctx) {
		return fmt.Errorf("lock technician %q: no transaction in context", slug)
	}
	if _, err := db.Conn(ctx, r.pool).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, slug); err != nil {
		return fmt.Errorf("lock technician: %w", err)
	}
	return nil
}

func (r *Repo) Insert(ctx context.Context, v Visit) (Visit, error) {
	return scanVisit(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO visits (technician_slug, technician_name, quote_id, customer_name, customer_email,
			region, comuna, visit_date, visit_time, address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+visitColumns,
		v.TechnicianSlug, v.TechnicianName, v.QuoteID, v.CustomerName, v.CustomerEmail,
		v.Region, v.Comuna, v.Date, toPgTime(v.Time), v.Address, v.Notes,
	))
}

func (r *Repo) Update(ctx context.Context, v Visit) (Visit, error) {
	return scanVisit(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE visits SET technician_slug = $2, technician_name = $3, quote_id = $4,
			customer_name = $5, customer_email = $6, region = $7, comuna = $8,
			visit_date = $9, visit_time = $10, address = $11, notes = $12, updated_at = now()
		WHERE id = $1
		RETURNING `+visitColumns,
		v.ID, v.TechnicianSlug, v.TechnicianName, v.QuoteID, v.CustomerName, v.CustomerEmail,
		v.Region, v.Comuna, v.Date, toPgTime(v.Time), v.Address, v.Notes,
	))
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM visits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete visit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(visitNotFoundMsg)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id int64) (Visit, error) {
	return scanVisit(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+visitColumns+` FROM visits WHERE id = $1`, id))
}

func (r *Repo) ListForTechnician(ctx context.Context, slug string, from, to time.Time, excludeID int64) ([]Visit, error) {
	return r.list(ctx, `
		SELECT `+visitColumns+` FROM visits
		WHERE technician_slug = $1 AND visit_date BETWEEN $2 AND $3 AND id <> $4
		ORDER BY visit_date, visit_time NULLS LAST, id`,
		slug, from, to, excludeID)
}

func (r *Repo) ActiveForQuote(ctx context.Context, quoteID int64) (Visit, error) {
	return scanVisit(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+visitColumns+` FROM visits
		WHERE quote_id = $1
		ORDER BY visit_date, visit_time NULLS LAST, id
		LIMIT 1`, quoteID))
}

func (r *Repo) AssignedToQuote(ctx context.Context, quoteID int64, technicianSlug string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM visits WHERE quote_id = $1 AND technician_slug = $2)`,
		quoteID, technicianSlug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check visit assignment: %w", err)
	}
	return exists, nil
}

func (r *Repo) ListAgenda(ctx context.Context, f AgendaFilter) ([]Visit, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultAgendaSize
	}
	return r.list(ctx, `
		SELECT `+visitColumns+` FROM visits
		WHERE ($1 = '' OR technician_slug = $1)
			AND ($2::date IS NULL OR visit_date >= $2)
			AND ($3::date IS NULL OR visit_date <= $3)
		ORDER BY visit_date, visit_time NULLS LAST, id
		LIMIT $4`,
		f.TechnicianSlug, f.From, f.To, limit)
}

func (r *Repo) list(ctx context.Context, sql string, args ...any) ([]Visit, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func scanVisit(row pgx.Row) (Visit, error) {
	var (
		v  Visit
		at pgtype.Time
	)
	err := row.Scan(&v.ID, &v.TechnicianSlug, &v.TechnicianName, &v.QuoteID, &v.CustomerName, &v.CustomerEmail,
		&v.Region, &v.Comuna, &v.Date, &at, &v.Address, &v.Notes, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Visit{}, apperr.NotFound(visitNotFoundMsg)
	}
	if err != nil {
		return Visit{}, fmt.Errorf("scan visit: %w", err)
	}
	if at.Valid {
		c := clock.FromMicros(at.Microseconds)
		v.Time = &c
	}
	return v, nil
}

func toPgTime(c *clock.Clock) pgtype.Time {
	if c == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: c.Micros(), Valid: true}
}

var _ Repository = (*Repo)(nil)
