package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/allergenai/backend/internal/domain"
	"go.uber.org/zap"
)

// Placeholder entry returned when ingredient descriptions could not be generated
const (
	PlaceholderIngredientKey   = "Ingredients Generation Error"
	PlaceholderIngredientValue = "Description Generation Unavailable"
)

// Resolution outcomes reported to the Recorder
const (
	OutcomeCacheHit         = "cache_hit"
	OutcomeGenerated        = "generated"
	OutcomeDegraded         = "degraded"
	OutcomeNotFound         = "not_found"
	OutcomeValidationFailed = "validation_failed"
	OutcomeFailed           = "failed"
)

// Recorder observes resolution outcomes, typically for metrics.
type Recorder interface {
	ObserveResolution(outcome string)
	ObserveGeneration(kind string, ok bool)
}

type noopRecorder struct{}

func (noopRecorder) ObserveResolution(string) {}
func (noopRecorder) ObserveGeneration(string, bool) {}

// ResolverConfig holds optional collaborators for the resolver
type ResolverConfig struct {
	Recorder Recorder
	Now      func() time.Time
}

// ProductResolver resolves product descriptions with a cache-aside flow across
// the product store, the raw product store and the upstream product database.
type ProductResolver struct {
	products     domain.ProductStore
	raw          domain.RawProductStore
	source       domain.ExternalProductSource
	descriptions domain.DescriptionGenerator
	recorder     Recorder
	now          func() time.Time
}

// NewProductResolver creates a resolver with dependencies. raw may be nil when
// no local dataset is configured.
func NewProductResolver(
	products domain.ProductStore,
	raw domain.RawProductStore,
	source domain.ExternalProductSource,
	descriptions domain.DescriptionGenerator,
	config ResolverConfig,
) *ProductResolver {
	recorder := config.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &ProductResolver{
		products:     products,
		raw:          raw,
		source:       source,
		descriptions: descriptions,
		recorder:     recorder,
		now:          now,
	}
}

// Resolve returns the product name with ingredient and additive descriptions in
// the requested language.
// Flow: product store -> raw store -> upstream fetch -> validate -> generate -> persist -> return
func (r *ProductResolver) Resolve(ctx context.Context, request *domain.ResolveRequest) (*domain.ProductSummary, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}
	code := strings.TrimSpace(request.ProductCode)
	language := strings.TrimSpace(request.Language)
	if code == "" || language == "" {
		return nil, fmt.Errorf("%w: product code and language are required", domain.ErrInvalidRequest)
	}

	summary, err := r.resolve(ctx, code, language)
	r.recorder.ObserveResolution(outcomeOf(summary, err))
	return summary, err
}

func (r *ProductResolver) resolve(ctx context.Context, code, language string) (*domain.ProductSummary, error) {
	log := zap.L().With(zap.String("product_code", code), zap.String("language", language))

	// Try the resolved product store first
	record, err := r.products.Get(ctx, code, language)
	switch {
	case err == nil && record.IsComplete():
		log.Debug("product found in the product store")
		summary := record.Summary()
		summary.Source = "cache"
		return summary, nil
	case err != nil && !errors.Is(err, domain.ErrCacheMiss):
		log.Error("product store lookup failed", zap.Error(err))
		return nil, err
	}

	log.Debug("product not found in the product store")

	facts, err := r.loadFacts(ctx, code, log)
	if err != nil {
		return nil, err
	}

	if !facts.HasIngredients() {
		log.Info("product has no ingredient text")
		return nil, domain.ErrMissingIngredients
	}

	ingredients, err := r.descriptions.DescribeIngredients(ctx, []string{facts.IngredientsText}, language)
	r.recorder.ObserveGeneration("ingredients", err == nil)
	degraded := err != nil || ingredients == nil
	if degraded {
		log.Warn("ingredient descriptions unavailable, using placeholder", zap.Error(err))
		ingredients = map[string]string{PlaceholderIngredientKey: PlaceholderIngredientValue}
	}

	additives := domain.RawAdditives(nil)
	if len(facts.AdditiveTags) > 0 {
		described, err := r.descriptions.DescribeAdditives(ctx, facts.AdditiveTags, language)
		r.recorder.ObserveGeneration("additives", err == nil)
		if err != nil || described == nil {
			log.Warn("additive descriptions unavailable, returning raw tags", zap.Error(err))
			additives = domain.RawAdditives(facts.AdditiveTags)
		} else {
			additives = domain.DescribedAdditives(described)
		}
	}

	productName := strings.TrimSpace(facts.ProductName)

	summary := &domain.ProductSummary{
		ProductName:            productName,
		IngredientsDescription: ingredients,
		AdditivesDescription:   additives,
		Source:                 "generated",
		Degraded:               degraded,
	}

	switch {
	case degraded:
		log.Info("skipping persistence of placeholder descriptions")
	case productName == "":
		log.Warn("skipping persistence of product without a name")
	default:
		if err := r.products.Put(ctx, &domain.ResolvedProductRecord{
			ProductCode:            code,
			Language:               language,
			ProductName:            productName,
			IngredientDescriptions: ingredients,
			AdditiveDescriptions:   additives,
			CreatedAt:              r.now().UTC(),
		}); err != nil {
			log.Error("failed to persist resolved product", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
		}
		log.Debug("product written to the product store")
	}

	return summary, nil
}

// loadFacts reads raw facts from the local dataset, falling back to the upstream API.
func (r *ProductResolver) loadFacts(ctx context.Context, code string, log *zap.Logger) (*domain.RawProductFacts, error) {
	if r.raw != nil {
		facts, err := r.raw.Get(ctx, code)
		if err != nil {
			log.Error("raw product store lookup failed", zap.Error(err))
			return nil, err
		}
		if facts != nil {
			log.Debug("product found in the raw product store")
			return facts, nil
		}
	}

	log.Debug("product not found locally, calling the upstream API")
	facts, err := r.source.Fetch(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			log.Info("product not found upstream")
		} else {
			log.Error("upstream fetch failed", zap.Error(err))
		}
		return nil, err
	}
	return facts, nil
}

func outcomeOf(summary *domain.ProductSummary, err error) string {
	switch {
	case err == nil && summary.Source == "cache":
		return OutcomeCacheHit
	case err == nil && summary.Degraded:
		return OutcomeDegraded
	case err == nil:
		return OutcomeGenerated
	}

	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return OutcomeNotFound
	case domain.KindValidation:
		return OutcomeValidationFailed
	default:
		return OutcomeFailed
	}
}
