package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/techcompare/specmatch/internal/domain"
	"github.com/techcompare/specmatch/internal/usecase"
)

const (
	serviceName    = "specmatch"
	serviceVersion = "1.0.0"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	engine *usecase.Engine
	logger zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(engine *usecase.Engine, logger zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger.With().Str("component", "handler").Logger(),
	}
}

// ParseRequest is the body of a parse request
type ParseRequest struct {
	Specification string `json:"specification" binding:"required"`
}

// CompareRequest is the body of a compare request
type CompareRequest struct {
	ProductIDs []string `json:"product_ids" binding:"required"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"service":     serviceName,
		"version":     serviceVersion,
		"modelLoaded": h.engine.Current() != nil,
	})
}

// Search ranks the catalog against a free-text specification
func (h *Handler) Search(c *gin.Context) {
	var req domain.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.engine.Search(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Parse extracts structured attributes from a specification
func (h *Handler) Parse(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	spec := h.engine.ParseSpecification(req.Specification)
	c.JSON(http.StatusOK, gin.H{
		"query":               req.Specification,
		"parsedSpecification": spec,
		"extractedFeatures":   spec.Keys(),
	})
}

// Predict estimates the price of a structured product description
func (h *Handler) Predict(c *gin.Context) {
	var req domain.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.engine.PredictPrice(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Train retrains the model roster on a fresh catalog read
func (h *Handler) Train(c *gin.Context) {
	set, err := h.engine.Train(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "model training completed",
		"modelInfo": set.Info(),
	})
}

// ModelStatus reports the active model epoch
func (h *Handler) ModelStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Status(c.Request.Context()))
}

// ListProducts returns catalog products, optionally filtered by brand and price.
// Query: brand, min_price, max_price
func (h *Handler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	catalog := h.engine.Catalog()

	minPrice, minErr := queryFloat(c, "min_price", 0)
	maxPrice, maxErr := queryFloat(c, "max_price", 0)
	if err := errors.Join(minErr, maxErr); err != nil {
		h.badRequest(c, err)
		return
	}

	var (
		products []domain.ProductRecord
		err      error
	)
	if c.Query("min_price") != "" || c.Query("max_price") != "" {
		if c.Query("max_price") == "" {
			maxPrice = math.Inf(1)
		}
		products, err = catalog.ByPriceRange(ctx, minPrice, maxPrice)
	} else {
		products, err = catalog.Products(ctx)
	}
	if err != nil {
		h.handleError(c, err)
		return
	}

	if brand := c.Query("brand"); brand != "" {
		want := usecase.NormalizeBrand(brand)
		filtered := make([]domain.ProductRecord, 0, len(products))
		for _, p := range products {
			if p.Brand == want {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    len(products),
	})
}

// GetProduct returns one catalog product
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.engine.Catalog().Product(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// Recommendations returns products similar in price to the given one. Query: limit
func (h *Handler) Recommendations(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	recs, err := h.engine.Catalog().Recommendations(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// Compare puts several products side by side
func (h *Handler) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	comparison, err := h.engine.Catalog().Compare(c.Request.Context(), req.ProductIDs)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, comparison)
}

// Statistics summarizes the catalog
func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.engine.Catalog().Statistics(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// UserPredictions returns a user's prediction history. Query: limit
func (h *Handler) UserPredictions(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	userID := c.Param("userId")
	predictions, err := h.engine.UserPredictions(c.Request.Context(), userID, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":      userID,
		"predictions": predictions,
		"total":       len(predictions),
	})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request",
		"details": err.Error(),
	})
}

// handleError maps domain errors to HTTP status codes
func (h *Handler) handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, domain.ErrInsufficientData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrTrainingInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "model training already in progress"})
	case errors.Is(err, domain.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model not trained yet"})
	case errors.Is(err, domain.ErrRepositoryUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "product catalog temporarily unavailable"})
	default:
		h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return v, nil
}

func queryFloat(c *gin.Context, key string, def float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New(key + " must be a number")
	}
	return v, nil
}
