package domain

import (
	"context"
)

// ProductStore is the cache-aside store of resolved, per-language records.
type ProductStore interface {
	// Get returns ErrCacheMiss when the key is absent or the stored record is incomplete.
	Get(ctx context.Context, productCode, language string) (*ResolvedProductRecord, error)
	// Put upserts the whole record.
	Put(ctx context.Context, record *ResolvedProductRecord) error
}

// RawProductStore reads previously ingested raw product facts.
type RawProductStore interface {
	// Get returns (nil, nil) when no record exists for the code.
	Get(ctx context.Context, productCode string) (*RawProductFacts, error)
}

// ExternalProductSource fetches raw product facts from the upstream product database.
type ExternalProductSource interface {
	// Fetch returns ErrProductNotFound when the upstream has no record and
	// ErrUpstreamFailure for transport, server or payload errors.
	Fetch(ctx context.Context, productCode string) (*RawProductFacts, error)
}

// TextGenerator sends a single-turn instruction to a generative-text model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int64) (string, error)
}

// DescriptionGenerator turns ingredient text or additive tags into name→description
// mappings. A nil map with a non-nil error signals a recoverable generation failure.
type DescriptionGenerator interface {
	DescribeIngredients(ctx context.Context, ingredients []string, language string) (map[string]string, error)
	DescribeAdditives(ctx context.Context, tags []string, language string) (map[string]string, error)
}
