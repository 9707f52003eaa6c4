package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CategoryInvoice is the document category of issued invoices.
const CategoryInvoice = "FACTURA"

// Source is everything needed to invoice a quote.
type Source struct {
	QuoteSnapshot
	CustomerID    int64
	CustomerName  string
	CustomerEmail string
	Place         string
	Region        string
	Comuna        string
	AuthCode      string
	GatewayStatus string
}

// Document is a filed document row.
type Document struct {
	ID            int64
	Title         string
	Description   string
	Category      string
	QuoteID       int64
	CustomerID    int64
	StorageURL    string
	StoragePath   string
	StorageBucket string
	LocalPath     string
	Tags          []string
	UpdatedAt     time.Time
}

// Repository reads invoice sources and files documents.
type Repository interface {
	LoadSource(ctx context.Context, quoteID int64) (Source, error)
	// UpsertDocument keeps one document per quote and category, merging tags.
	UpsertDocument(ctx context.Context, doc Document) (Document, error)
	GetDocument(ctx context.Context, quoteID int64, category string) (Document, error)
}

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) LoadSource(ctx context.Context, quoteID int64) (Source, error) {
	conn := db.Conn(ctx, r.pool)

	var (
		src    Source
		budget decimal.NullDecimal
		title  *string
	)
	err := conn.QueryRow(ctx, `
		SELECT q.id, q.subject, s.title, q.estimated_budget, q.customer_id,
			COALESCE(NULLIF(trim(c.first_name || ' ' || c.last_name), ''), c.username), c.email,
			q.place, q.region, q.comuna, q.tb_auth_code, q.tb_status
		FROM quotes q
		JOIN customers c ON c.id = q.customer_id
		LEFT JOIN service_categories s ON s.id = q.service_id
		WHERE q.id = $1`, quoteID,
	).Scan(&src.ID, &src.Subject, &title, &budget, &src.CustomerID,
		&src.CustomerName, &src.CustomerEmail,
		&src.Place, &src.Region, &src.Comuna, &src.AuthCode, &src.GatewayStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return Source{}, apperr.NotFound("quote not found")
	}
	if err != nil {
		return Source{}, fmt.Errorf("load invoice source: %w", err)
	}
	if title != nil {
		src.ServiceTitle = *title
	}
	if budget.Valid {
		src.EstimatedBudget = &budget.Decimal
	}

	rows, err := conn.Query(ctx, `
		SELECT description, quantity, unit_price
		FROM quote_items WHERE quote_id = $1
		ORDER BY position, id`, quoteID)
	if err != nil {
		return Source{}, fmt.Errorf("load quote items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Description, &it.Quantity, &it.UnitPrice); err != nil {
			return Source{}, fmt.Errorf("scan quote item: %w", err)
		}
		src.Items = append(src.Items, it)
	}
	return src, rows.Err()
}

func (r *Repo) UpsertDocument(ctx context.Context, d Document) (Document, error) {
	return scanDocument(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO documents (title, description, category, quote_id, customer_id,
			storage_url, storage_path, storage_bucket, local_path, tags, public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE)
		ON CONFLICT (quote_id, category) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			customer_id = EXCLUDED.customer_id,
			storage_url = COALESCE(NULLIF(EXCLUDED.storage_url, ''), documents.storage_url),
			storage_path = COALESCE(NULLIF(EXCLUDED.storage_path, ''), documents.storage_path),
			storage_bucket = COALESCE(NULLIF(EXCLUDED.storage_bucket, ''), documents.storage_bucket),
			local_path = EXCLUDED.local_path,
			tags = ARRAY(SELECT DISTINCT unnest(documents.tags || EXCLUDED.tags) ORDER BY 1),
			public = FALSE,
			updated_at = now()
		RETURNING id, title, description, category, quote_id, COALESCE(customer_id, 0),
			storage_url, storage_path, storage_bucket, local_path, tags, updated_at`,
		d.Title, d.Description, d.Category, d.QuoteID, d.CustomerID,
		d.StorageURL, d.StoragePath, d.StorageBucket, d.LocalPath, d.Tags,
	))
}

func (r *Repo) GetDocument(ctx context.Context, quoteID int64, category string) (Document, error) {
	return scanDocument(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, title, description, category, quote_id, COALESCE(customer_id, 0),
			storage_url, storage_path, storage_bucket, local_path, tags, updated_at
		FROM documents WHERE quote_id = $1 AND category = $2`, quoteID, category))
}

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.Category, &d.QuoteID, &d.CustomerID,
		&d.StorageURL, &d.StoragePath, &d.StorageBucket, &d.LocalPath, &d.Tags, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, apperr.NotFound("document not found")
	}
	if err != nil {
		return Document{}, fmt.Errorf("scan document: %w", err)
	}
	return d, nil
}

var _ Repository = (*Repo)(nil)
