package cache

import (
	"encoding/json"
	"fmt"

	"github.com/allergenai/backend/internal/domain"
	"github.com/rotisserie/eris"
)

// Key builds the composite store key for a product description.
// Format: "product:{product_code}:{language}"
func Key(productCode, language string) string {
	return fmt.Sprintf("product:%s:%s", productCode, language)
}

func encodeRecord(record *domain.ResolvedProductRecord) ([]byte, error) {
	if record == nil {
		return nil, eris.New("cache: nil record")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, eris.Wrap(err, "cache: encode record")
	}
	return data, nil
}

// decodeRecord returns domain.ErrCacheMiss for undecodable or incomplete entries
// so they get regenerated.
func decodeRecord(data []byte) (*domain.ResolvedProductRecord, error) {
	var record domain.ResolvedProductRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, domain.ErrCacheMiss
	}
	if !record.IsComplete() {
		return nil, domain.ErrCacheMiss
	}
	return &record, nil
}
