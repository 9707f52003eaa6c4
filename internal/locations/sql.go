package locations

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLCatalog reads regions and comunas from the database and falls back to
// another catalog when the tables are empty.
type SQLCatalog struct {
	db       *sql.DB
	fallback Catalog
}

func NewSQLCatalog(db *sql.DB, fallback Catalog) *SQLCatalog {
	return &SQLCatalog{db: db, fallback: fallback}
}

func (c *SQLCatalog) Regions(ctx context.Context) ([]string, error) {
	names, err := c.queryNames(ctx, `SELECT name FROM regions ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 && c.fallback != nil {
		return c.fallback.Regions(ctx)
	}
	return names, nil
}

func (c *SQLCatalog) Comunas(ctx context.Context, region string) ([]string, error) {
	names, err := c.queryNames(ctx, `
		SELECT c.name
		FROM comunas c
		JOIN regions r ON r.id = c.region_id
		WHERE lower(r.name) = lower($1)
		ORDER BY c.name`, region)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 && c.fallback != nil {
		return c.fallback.Comunas(ctx, region)
	}
	return names, nil
}

func (c *SQLCatalog) queryNames(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

var _ Catalog = (*SQLCatalog)(nil)
