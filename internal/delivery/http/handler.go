package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/allergenai/backend/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProductResolver is the use case behind the product endpoint
type ProductResolver interface {
	Resolve(ctx context.Context, req *domain.ResolveRequest) (*domain.ProductSummary, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	resolver ProductResolver
}

// NewHandler creates a new HTTP handler
func NewHandler(resolver ProductResolver) *Handler {
	return &Handler{resolver: resolver}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "allergen-backend",
		"version": "1.0.0",
	})
}

// GetProduct resolves ingredient and additive descriptions for a barcode
// in the requested language.
func (h *Handler) GetProduct(c *gin.Context) {
	if h.resolver == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "product resolver not configured"})
		return
	}

	req := &domain.ResolveRequest{
		ProductCode: c.Param("code"),
		Language:    c.Param("language"),
	}

	summary, err := h.resolver.Resolve(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, req, err)
		return
	}

	c.Header("X-Resolution-Source", summary.Source)
	c.JSON(http.StatusOK, summary)
}

// writeError maps the domain error taxonomy onto HTTP status codes
func (h *Handler) writeError(c *gin.Context, req *domain.ResolveRequest, err error) {
	kind := domain.KindOf(err)
	fields := []zap.Field{
		zap.String("product_code", req.ProductCode),
		zap.String("language", req.Language),
		zap.String("kind", string(kind)),
		zap.Error(err),
	}

	switch kind {
	case domain.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND"})
	case domain.KindInvalidRequest:
		c.JSON(http.StatusBadRequest, gin.H{"error": publicMessage(err)})
	default:
		zap.L().Error("product resolution failed", fields...)
		c.JSON(http.StatusInternalServerError, gin.H{"error": publicMessage(err)})
	}
}

// publicMessage returns the sentinel text for known failures so that
// wrapped causes (hosts, SQL, API payloads) never reach the client.
func publicMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrInvalidRequest,
		domain.ErrMissingIngredients,
		domain.ErrGenerationFailed,
		domain.ErrPersistenceFailed,
		domain.ErrUpstreamFailure,
		domain.ErrStoreUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}
