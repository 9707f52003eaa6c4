package locations

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLCatalogReadsTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT name FROM regions ORDER BY position, name`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Metropolitana").AddRow("Valparaiso"))
	mock.ExpectQuery(`SELECT c.name FROM comunas c JOIN regions r ON r.id = c.region_id WHERE lower\(r.name\) = lower\(\$1\)`).
		WithArgs("Valparaiso").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Viña del Mar"))

	catalog := NewSQLCatalog(db, nil)

	regions, err := catalog.Regions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Metropolitana", "Valparaiso"}, regions)

	comunas, err := catalog.Comunas(context.Background(), "Valparaiso")
	require.NoError(t, err)
	assert.Equal(t, []string{"Viña del Mar"}, comunas)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCatalogFallsBackWhenEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT name FROM regions`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	static, err := NewStaticCatalog()
	require.NoError(t, err)

	regions, err := NewSQLCatalog(db, static).Regions(context.Background())
	require.NoError(t, err)
	assert.Len(t, regions, 16)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCatalogPropagatesQueryErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT name FROM regions`).WillReturnError(errors.New("connection refused"))

	_, err = NewSQLCatalog(db, nil).Regions(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}
