package rawstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/allergenai/backend/internal/domain"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/rotisserie/eris"
)

const pebbleKeyPrefix = "off:"

// pebbleRecord mirrors one Open Food Facts dump entry as written by the loader.
type pebbleRecord struct {
	ProductName     string   `json:"product_name"`
	IngredientsText *string  `json:"ingredients_text"`
	AdditivesTags   []string `json:"additives_tags"`
}

// PebbleStore implements domain.RawProductStore over an embedded Pebble database.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (or creates) the Pebble database in dir.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	return openPebble(filepath.Clean(dir), &pebble.Options{})
}

// NewInMemoryPebbleStore opens a Pebble database backed by memory only.
func NewInMemoryPebbleStore() (*PebbleStore, error) {
	return openPebble("", &pebble.Options{FS: vfs.NewMem()})
}

func openPebble(dir string, opts *pebble.Options) (*PebbleStore, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, eris.Wrap(err, "pebble: open")
	}
	return &PebbleStore{db: db}, nil
}

func pebbleKey(productCode string) []byte {
	return []byte(pebbleKeyPrefix + productCode)
}

// Get returns the raw facts for productCode, or (nil, nil) when absent.
func (p *PebbleStore) Get(ctx context.Context, productCode string) (*domain.RawProductFacts, error) {
	value, closer, err := p.db.Get(pebbleKey(productCode))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: pebble get %s: %v", domain.ErrStoreUnavailable, productCode, err)
	}
	defer closer.Close()

	var rec pebbleRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, eris.Wrapf(err, "pebble: decode %s", productCode)
	}

	facts := &domain.RawProductFacts{
		ProductCode:  productCode,
		ProductName:  rec.ProductName,
		AdditiveTags: rec.AdditivesTags,
	}
	if rec.IngredientsText != nil {
		facts.IngredientsText = *rec.IngredientsText
	}
	if facts.AdditiveTags == nil {
		facts.AdditiveTags = []string{}
	}
	return facts, nil
}

// Put writes one product entry; used by the dataset loader and tests.
func (p *PebbleStore) Put(facts *domain.RawProductFacts) error {
	ingredients := facts.IngredientsText
	data, err := json.Marshal(pebbleRecord{
		ProductName:     facts.ProductName,
		IngredientsText: &ingredients,
		AdditivesTags:   facts.AdditiveTags,
	})
	if err != nil {
		return eris.Wrap(err, "pebble: encode")
	}
	if err := p.db.Set(pebbleKey(facts.ProductCode), data, pebble.Sync); err != nil {
		return eris.Wrapf(err, "pebble: set %s", facts.ProductCode)
	}
	return nil
}

// Close flushes and closes the database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}
