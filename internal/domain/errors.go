package domain

import "errors"

var (
	// ErrProductNotFound is returned when the upstream product database has no record
	ErrProductNotFound = errors.New("product not found")

	// ErrMissingIngredients is returned when a product exists but has no ingredient text
	ErrMissingIngredients = errors.New("missing ingredients in Open Food Facts data, unable to describe this product")

	// ErrGenerationFailed is returned when the generative-text call or its parsing fails
	ErrGenerationFailed = errors.New("description generation failed")

	// ErrPersistenceFailed is returned when a resolved record cannot be written
	ErrPersistenceFailed = errors.New("error while saving the product into the database")

	// ErrUpstreamFailure is returned when the Open Food Facts API request fails
	ErrUpstreamFailure = errors.New("Open Food Facts API request failed")

	// ErrStoreUnavailable is returned when a backing store cannot be reached
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// ErrorKind classifies a resolution failure.
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindNotFound       ErrorKind = "not_found"
	KindValidation     ErrorKind = "validation"
	KindGeneration     ErrorKind = "generation"
	KindPersistence    ErrorKind = "persistence"
	KindTransport      ErrorKind = "transport"
	KindInvalidRequest ErrorKind = "invalid_request"
	KindInternal       ErrorKind = "internal"
)

// KindOf maps an error returned by the resolution pipeline to its kind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrProductNotFound):
		return KindNotFound
	case errors.Is(err, ErrMissingIngredients):
		return KindValidation
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrPersistenceFailed):
		return KindPersistence
	case errors.Is(err, ErrGenerationFailed):
		return KindGeneration
	case errors.Is(err, ErrUpstreamFailure), errors.Is(err, ErrStoreUnavailable):
		return KindTransport
	default:
		return KindInternal
	}
}
