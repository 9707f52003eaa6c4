package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fm_servicios_backend/platform/apperr"
	"fm_servicios_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const quoteNotFoundMsg = "quote not found"

const selectQuote = `
	SELECT q.id, q.customer_id,
		COALESCE(NULLIF(trim(c.first_name || ' ' || c.last_name), ''), c.username), c.email, c.phone,
		q.building_id, q.service_id, COALESCE(s.title, ''),
		q.subject, q.message, q.estimated_budget, q.place, q.region, q.comuna,
		q.status, q.resolved_at, q.rejection_reason,
		q.tb_token, COALESCE(q.tb_buy_order, ''), q.tb_session_id, q.tb_status, q.tb_response_code,
		q.tb_auth_code, q.tb_card_last4, q.tb_redirect_url, q.tb_created_at,
		q.created_at, q.updated_at
	FROM quotes q
	JOIN customers c ON c.id = q.customer_id
	LEFT JOIN service_categories s ON s.id = q.service_id`

// Repo is the PostgreSQL quote repository.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, p CreateParams) (Quote, error) {
	status := p.Status
	if status == "" {
		status = StatusPending
	}

	var id int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO quotes (customer_id, building_id, service_id, subject, message, place, region, comuna,
			status, resolved_at, rejection_reason, estimated_budget)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		p.CustomerID, p.BuildingID, p.ServiceID, p.Subject, p.Message, p.Place, p.Region, p.Comuna,
		string(status), p.ResolvedAt, p.RejectionReason, p.EstimatedBudget,
	).Scan(&id)
	if err != nil {
		return Quote{}, fmt.Errorf("insert quote: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *Repo) Get(ctx context.Context, id int64) (Quote, error) {
	return scanQuote(db.Conn(ctx, r.pool).QueryRow(ctx, selectQuote+` WHERE q.id = $1`, id))
}

func (r *Repo) GetForUpdate(ctx context.Context, id int64) (Quote, error) {
	if !db.InTx(ctx) {
		return Quote{}, errors.New("GetForUpdate requires a transaction")
	}
	return scanQuote(db.Conn(ctx, r.pool).QueryRow(ctx, selectQuote+` WHERE q.id = $1 FOR UPDATE OF q`, id))
}

func (r *Repo) FindByToken(ctx context.Context, token string) (Quote, error) {
	return scanQuote(db.Conn(ctx, r.pool).QueryRow(ctx, selectQuote+` WHERE q.tb_token = $1 AND q.tb_token <> ''`, token))
}

func (r *Repo) FindByBuyOrder(ctx context.Context, buyOrder string) (Quote, error) {
	return scanQuote(db.Conn(ctx, r.pool).QueryRow(ctx, selectQuote+` WHERE q.tb_buy_order = $1`, buyOrder))
}

func (r *Repo) List(ctx context.Context, params ListParams) (ListResult, error) {
	sortBy, err := resolveSortBy(params.SortBy)
	if err != nil {
		return ListResult{}, err
	}
	sortOrder, err := resolveSortOrder(params.SortOrder)
	if err != nil {
		return ListResult{}, err
	}

	var statusParam any
	if params.Status != nil {
		statusParam = string(*params.Status)
	}
	var customerParam any
	if params.CustomerID != nil {
		customerParam = *params.CustomerID
	}
	var searchParam any
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	where := `
		WHERE ($1::text IS NULL OR q.status = $1)
			AND ($2::bigint IS NULL OR q.customer_id = $2)
			AND ($3::text IS NULL OR q.subject ILIKE $3 OR q.comuna ILIKE $3 OR c.email ILIKE $3)`
	args := []any{statusParam, customerParam, searchParam}

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM quotes q JOIN customers c ON c.id = q.customer_id`+where, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count quotes: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	query := selectQuote + where + `
		ORDER BY
			CASE WHEN $4 = 'status' AND $5 = 'asc' THEN q.status END ASC,
			CASE WHEN $4 = 'status' AND $5 = 'desc' THEN q.status END DESC,
			CASE WHEN $4 = 'budget' AND $5 = 'asc' THEN q.estimated_budget END ASC,
			CASE WHEN $4 = 'budget' AND $5 = 'desc' THEN q.estimated_budget END DESC,
			CASE WHEN $4 = 'createdAt' AND $5 = 'asc' THEN q.created_at END ASC,
			CASE WHEN $4 = 'createdAt' AND $5 = 'desc' THEN q.created_at END DESC,
			CASE WHEN $4 = 'updatedAt' AND $5 = 'asc' THEN q.updated_at END ASC,
			CASE WHEN $4 = 'updatedAt' AND $5 = 'desc' THEN q.updated_at END DESC,
			q.created_at DESC, q.id DESC
		LIMIT $6 OFFSET $7`
	args = append(args, sortBy, sortOrder, params.PageSize, offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	items := make([]Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return ListResult{}, err
		}
		items = append(items, q)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("iterate quotes: %w", err)
	}

	return ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (r *Repo) ServiceTitle(ctx context.Context, serviceID int64) (string, error) {
	var title string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT title FROM service_categories WHERE id = $1`, serviceID).Scan(&title)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("service not found")
	}
	if err != nil {
		return "", fmt.Errorf("get service title: %w", err)
	}
	return title, nil
}

func (r *Repo) Items(ctx context.Context, quoteID int64) ([]Item, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, quote_id, description, quantity, unit_price, position
		FROM quote_items WHERE quote_id = $1
		ORDER BY position, id`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("query quote items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Position); err != nil {
			return nil, fmt.Errorf("scan quote item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote items: %w", err)
	}
	return items, nil
}

func (r *Repo) SaveState(ctx context.Context, q Quote) error {
	result, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE quotes SET status = $2, resolved_at = $3, rejection_reason = $4,
			estimated_budget = $5, updated_at = now()
		WHERE id = $1`,
		q.ID, string(q.Status), q.ResolvedAt, q.RejectionReason, q.EstimatedBudget)
	if err != nil {
		return fmt.Errorf("update quote state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(quoteNotFoundMsg)
	}
	return nil
}

func (r *Repo) ReplaceItems(ctx context.Context, quoteID int64, items []Item) error {
	conn := db.Conn(ctx, r.pool)
	if _, err := conn.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, quoteID); err != nil {
		return fmt.Errorf("delete quote items: %w", err)
	}

	for i, it := range items {
		if _, err := conn.Exec(ctx, `
			INSERT INTO quote_items (quote_id, description, quantity, unit_price, position)
			VALUES ($1, $2, $3, $4, $5)`,
			quoteID, it.Description, it.Quantity, it.UnitPrice, i,
		); err != nil {
			return fmt.Errorf("insert quote item: %w", err)
		}
	}
	return nil
}

func (r *Repo) SaveGateway(ctx context.Context, q Quote) error {
	g := q.Gateway
	result, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE quotes SET
			tb_token = $2, tb_buy_order = NULLIF($3, ''), tb_session_id = $4, tb_status = $5,
			tb_response_code = $6, tb_auth_code = $7, tb_card_last4 = $8, tb_redirect_url = $9,
			tb_created_at = $10, status = $11, resolved_at = $12, updated_at = now()
		WHERE id = $1`,
		q.ID, g.Token, g.BuyOrder, g.SessionID, g.Status,
		g.ResponseCode, g.AuthCode, g.CardLast4, g.RedirectURL,
		g.CreatedAt, string(q.Status), q.ResolvedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("buy order already belongs to another quote")
	}
	if err != nil {
		return fmt.Errorf("update quote gateway: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(quoteNotFoundMsg)
	}
	return nil
}

func (r *Repo) ExpireGateway(ctx context.Context, before time.Time) ([]int64, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		UPDATE quotes SET tb_status = $1, updated_at = now()
		WHERE status = $2 AND tb_status = $3 AND tb_created_at < $4
		RETURNING id`,
		GatewayExpired, string(StatusPaymentInProgress), GatewayCreated, before)
	if err != nil {
		return nil, fmt.Errorf("expire gateway transactions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired quote: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanQuote(row pgx.Row) (Quote, error) {
	var (
		q      Quote
		status string
	)
	err := row.Scan(&q.ID, &q.CustomerID,
		&q.CustomerName, &q.CustomerEmail, &q.CustomerPhone,
		&q.BuildingID, &q.ServiceID, &q.ServiceTitle,
		&q.Subject, &q.Message, &q.EstimatedBudget, &q.Place, &q.Region, &q.Comuna,
		&status, &q.ResolvedAt, &q.RejectionReason,
		&q.Gateway.Token, &q.Gateway.BuyOrder, &q.Gateway.SessionID, &q.Gateway.Status, &q.Gateway.ResponseCode,
		&q.Gateway.AuthCode, &q.Gateway.CardLast4, &q.Gateway.RedirectURL, &q.Gateway.CreatedAt,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, apperr.NotFound(quoteNotFoundMsg)
	}
	if err != nil {
		return Quote{}, fmt.Errorf("scan quote: %w", err)
	}
	q.Status = Status(status)
	return q, nil
}

func resolveSortBy(sortBy string) (string, error) {
	if sortBy == "" {
		return "createdAt", nil
	}
	switch sortBy {
	case "status", "budget", "createdAt", "updatedAt":
		return sortBy, nil
	default:
		return "", apperr.BadRequest("invalid sort field")
	}
}

func resolveSortOrder(sortOrder string) (string, error) {
	if sortOrder == "" {
		return "desc", nil
	}
	switch sortOrder {
	case "asc", "desc":
		return sortOrder, nil
	default:
		return "", apperr.BadRequest("invalid sort order")
	}
}

var _ Repository = (*Repo)(nil)
