package rawstore

import (
	"context"
	"errors"
	"testing"

	"github.com/allergenai/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectFacts = `SELECT product_name, ingredients_text, additives_tags FROM open_food_facts WHERE product_code = \$1`

func TestNewPostgresWithQuerier_TableName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostgresWithQuerier(mock, "")
	require.NoError(t, err)
	assert.Contains(t, store.query, "FROM open_food_facts ")

	store, err = NewPostgresWithQuerier(mock, "off.products")
	require.NoError(t, err)
	assert.Contains(t, store.query, "FROM off.products ")

	_, err = NewPostgresWithQuerier(mock, "products; DROP TABLE x")
	assert.Error(t, err)
}

func TestPostgresStore_Get_Found(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(selectFacts).
		WithArgs("3017620422003").
		WillReturnRows(pgxmock.NewRows([]string{"product_name", "ingredients_text", "additives_tags"}).
			AddRow(strPtr("Nutella"), strPtr("sugar, palm oil, hazelnuts"), []string{"en:e322"}))

	store, err := NewPostgresWithQuerier(mock, DefaultTable)
	require.NoError(t, err)

	facts, err := store.Get(context.Background(), "3017620422003")

	require.NoError(t, err)
	assert.Equal(t, &domain.RawProductFacts{
		ProductCode:     "3017620422003",
		ProductName:     "Nutella",
		IngredientsText: "sugar, palm oil, hazelnuts",
		AdditiveTags:    []string{"en:e322"},
	}, facts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NullColumns(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(selectFacts).
		WithArgs("42").
		WillReturnRows(pgxmock.NewRows([]string{"product_name", "ingredients_text", "additives_tags"}).
			AddRow(nil, nil, nil))

	store, err := NewPostgresWithQuerier(mock, DefaultTable)
	require.NoError(t, err)

	facts, err := store.Get(context.Background(), "42")

	require.NoError(t, err)
	assert.Equal(t, "", facts.ProductName)
	assert.False(t, facts.HasIngredients())
	assert.Equal(t, []string{}, facts.AdditiveTags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(selectFacts).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	store, err := NewPostgresWithQuerier(mock, DefaultTable)
	require.NoError(t, err)

	facts, err := store.Get(context.Background(), "missing")

	assert.NoError(t, err)
	assert.Nil(t, facts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(selectFacts).
		WithArgs("123").
		WillReturnError(errors.New("connection refused"))

	store, err := NewPostgresWithQuerier(mock, DefaultTable)
	require.NoError(t, err)

	facts, err := store.Get(context.Background(), "123")

	assert.Nil(t, facts)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgres_InvalidConnString(t *testing.T) {
	_, err := NewPostgres(context.Background(), "postgres://%zz", DefaultTable, PoolConfig{})
	assert.Error(t, err)
}

func strPtr(s string) *string { return &s }
