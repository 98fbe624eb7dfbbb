package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdditiveDescriptions_JSONShape(t *testing.T) {
	described, err := json.Marshal(DescribedAdditives(map[string]string{"E330": "Makes food sour."}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"E330":"Makes food sour."}`, string(described))

	raw, err := json.Marshal(RawAdditives([]string{"e330", "e500"}))
	require.NoError(t, err)
	assert.JSONEq(t, `["e330","e500"]`, string(raw))

	empty, err := json.Marshal(RawAdditives(nil))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(empty))
}

func TestAdditiveDescriptions_UnmarshalEitherShape(t *testing.T) {
	var a AdditiveDescriptions
	require.NoError(t, json.Unmarshal([]byte(`{"E330":"sour"}`), &a))
	assert.True(t, a.IsDescribed())
	assert.Equal(t, map[string]string{"E330": "sour"}, a.Descriptions)

	var b AdditiveDescriptions
	require.NoError(t, json.Unmarshal([]byte(`["e330"]`), &b))
	assert.False(t, b.IsDescribed())
	assert.Equal(t, []string{"e330"}, b.Tags)

	var c AdditiveDescriptions
	assert.Error(t, json.Unmarshal([]byte(`"e330"`), &c))
}

func TestResolvedProductRecord_IsComplete(t *testing.T) {
	complete := &ResolvedProductRecord{
		IngredientDescriptions: map[string]string{},
		AdditiveDescriptions:   RawAdditives(nil),
	}
	assert.True(t, complete.IsComplete())

	assert.False(t, (&ResolvedProductRecord{AdditiveDescriptions: RawAdditives(nil)}).IsComplete())
	assert.False(t, (&ResolvedProductRecord{IngredientDescriptions: map[string]string{}}).IsComplete())

	var missing *ResolvedProductRecord
	assert.False(t, missing.IsComplete())
}

func TestRawProductFacts_HasIngredients(t *testing.T) {
	assert.True(t, (&RawProductFacts{IngredientsText: "oats"}).HasIngredients())
	assert.False(t, (&RawProductFacts{IngredientsText: " \n\t"}).HasIngredients())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{ErrProductNotFound, KindNotFound},
		{fmt.Errorf("off: %w", ErrProductNotFound), KindNotFound},
		{ErrMissingIngredients, KindValidation},
		{fmt.Errorf("%w: empty code", ErrInvalidRequest), KindInvalidRequest},
		{fmt.Errorf("%w: redis down", ErrPersistenceFailed), KindPersistence},
		{fmt.Errorf("%w: no root", ErrGenerationFailed), KindGeneration},
		{fmt.Errorf("%w: status 502", ErrUpstreamFailure), KindTransport},
		{errors.Join(ErrStoreUnavailable, errors.New("dial tcp")), KindTransport},
		{errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "KindOf(%v)", tt.err)
	}
}
