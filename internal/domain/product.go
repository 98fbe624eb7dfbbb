package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// RawProductFacts is the language-independent product data taken from the
// Open Food Facts dataset or its live API.
type RawProductFacts struct {
	ProductCode     string   `json:"product_code"`
	ProductName     string   `json:"product_name"`
	IngredientsText string   `json:"ingredients_text"`
	AdditiveTags    []string `json:"additives_tags"`
}

// HasIngredients reports whether the facts carry usable ingredient text.
func (f *RawProductFacts) HasIngredients() bool {
	return f != nil && strings.TrimSpace(f.IngredientsText) != ""
}

// AdditiveDescriptions holds either generated additive descriptions keyed by
// cleaned additive name, or the raw additive tags when generation failed.
// It serializes as a JSON object in the first case and as an array otherwise.
type AdditiveDescriptions struct {
	Descriptions map[string]string
	Tags         []string
}

// DescribedAdditives wraps a generated mapping.
func DescribedAdditives(descriptions map[string]string) *AdditiveDescriptions {
	if descriptions == nil {
		descriptions = map[string]string{}
	}
	return &AdditiveDescriptions{Descriptions: descriptions}
}

// RawAdditives wraps an unlabelled tag sequence.
func RawAdditives(tags []string) *AdditiveDescriptions {
	if tags == nil {
		tags = []string{}
	}
	return &AdditiveDescriptions{Tags: tags}
}

// IsDescribed reports whether the value carries a generated mapping.
func (a *AdditiveDescriptions) IsDescribed() bool {
	return a != nil && a.Descriptions != nil
}

// MarshalJSON implements json.Marshaler.
func (a AdditiveDescriptions) MarshalJSON() ([]byte, error) {
	if a.Descriptions != nil {
		return json.Marshal(a.Descriptions)
	}
	if a.Tags == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.Tags)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *AdditiveDescriptions) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var m map[string]string
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return err
		}
		a.Descriptions = m
		a.Tags = nil
		return nil
	}

	var tags []string
	if err := json.Unmarshal(trimmed, &tags); err != nil {
		return err
	}
	if tags == nil {
		tags = []string{}
	}
	a.Descriptions = nil
	a.Tags = tags
	return nil
}

// ResolvedProductRecord is the cached, language-specific description payload.
// It is keyed by (ProductCode, Language) and always written as a whole.
type ResolvedProductRecord struct {
	ProductCode            string                `json:"product_code"`
	Language               string                `json:"language"`
	ProductName            string                `json:"product_name"`
	IngredientDescriptions map[string]string     `json:"ingredients,omitempty"`
	AdditiveDescriptions   *AdditiveDescriptions `json:"additives,omitempty"`
	CreatedAt              time.Time             `json:"created_at,omitempty"`
}

// IsComplete reports whether both description fields are present. Incomplete
// records are treated as cache misses and regenerated.
func (r *ResolvedProductRecord) IsComplete() bool {
	return r != nil && r.IngredientDescriptions != nil && r.AdditiveDescriptions != nil
}

// Summary converts the record into the response payload.
func (r *ResolvedProductRecord) Summary() *ProductSummary {
	return &ProductSummary{
		ProductName:            r.ProductName,
		IngredientsDescription: r.IngredientDescriptions,
		AdditivesDescription:   r.AdditiveDescriptions,
	}
}

// ProductSummary is the successful outcome of a resolution request.
type ProductSummary struct {
	ProductName            string                `json:"product_name"`
	IngredientsDescription map[string]string     `json:"ingredients_description"`
	AdditivesDescription   *AdditiveDescriptions `json:"additives_description"`
	Source                 string                `json:"-"` // "cache" or "generated"
	Degraded               bool                  `json:"-"`
}

// ResolveRequest identifies a product description in a target language.
type ResolveRequest struct {
	ProductCode string
	Language    string
}
