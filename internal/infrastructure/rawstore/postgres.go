// Package rawstore reads the language-independent product facts that were
// bulk-loaded from the Open Food Facts dataset dump.
package rawstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/allergenai/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// DefaultTable is the table populated by the dataset loader
const DefaultTable = "open_food_facts"

var tableNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// Querier is the subset of pgxpool.Pool used by the store; pgxmock satisfies it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements domain.RawProductStore over a PostgreSQL table:
//
//	CREATE TABLE open_food_facts (
//	    product_code     TEXT PRIMARY KEY,
//	    product_name     TEXT,
//	    ingredients_text TEXT,
//	    additives_tags   TEXT[]
//	);
type PostgresStore struct {
	db      Querier
	query   string
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgres creates a PostgresStore with its own connection pool.
func NewPostgres(ctx context.Context, connString, table string, poolCfg PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	if poolCfg.MaxConns > 0 {
		pgxCfg.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		pgxCfg.MinConns = poolCfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}

	store, err := NewPostgresWithQuerier(pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	store.closeFn = pool.Close
	return store, nil
}

// NewPostgresWithQuerier builds a store over an existing pool or mock.
func NewPostgresWithQuerier(db Querier, table string) (*PostgresStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRegex.MatchString(table) {
		return nil, eris.Errorf("postgres: invalid table name %q", table)
	}

	return &PostgresStore{
		db:    db,
		query: fmt.Sprintf(`SELECT product_name, ingredients_text, additives_tags FROM %s WHERE product_code = $1`, table),
	}, nil
}

// Get returns the raw facts for productCode, or (nil, nil) when absent.
func (s *PostgresStore) Get(ctx context.Context, productCode string) (*domain.RawProductFacts, error) {
	var (
		name        *string
		ingredients *string
		tags        []string
	)

	err := s.db.QueryRow(ctx, s.query, productCode).Scan(&name, &ingredients, &tags)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: postgres get %s: %v", domain.ErrStoreUnavailable, productCode, err)
	}

	facts := &domain.RawProductFacts{
		ProductCode:  productCode,
		AdditiveTags: tags,
	}
	if name != nil {
		facts.ProductName = *name
	}
	if ingredients != nil {
		facts.IngredientsText = *ingredients
	}
	if facts.AdditiveTags == nil {
		facts.AdditiveTags = []string{}
	}
	return facts, nil
}

// Close releases the pool when the store owns it
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
