package openfoodfacts

import (
	"strings"

	"github.com/allergenai/backend/internal/domain"
)

// ProductResponse is the v2 product envelope returned by Open Food Facts
type ProductResponse struct {
	Code          string   `json:"code"`
	Status        int      `json:"status"`
	StatusVerbose string   `json:"status_verbose"`
	Product       *Product `json:"product"`
}

// Product carries the subset of product fields requested via ?fields=
type Product struct {
	ProductName     string   `json:"product_name"`
	IngredientsText string   `json:"ingredients_text"`
	AdditivesTags   []string `json:"additives_tags"`
}

// MapToRawFacts converts an OFF envelope into domain facts.
// An envelope with status 0 or without a product means the code is unknown.
func MapToRawFacts(code string, resp *ProductResponse) (*domain.RawProductFacts, error) {
	if resp == nil || resp.Status == 0 || resp.Product == nil {
		return nil, domain.ErrProductNotFound
	}

	tags := make([]string, 0, len(resp.Product.AdditivesTags))
	for _, tag := range resp.Product.AdditivesTags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	productCode := resp.Code
	if productCode == "" {
		productCode = code
	}

	return &domain.RawProductFacts{
		ProductCode:     productCode,
		ProductName:     resp.Product.ProductName,
		IngredientsText: resp.Product.IngredientsText,
		AdditiveTags:    tags,
	}, nil
}
