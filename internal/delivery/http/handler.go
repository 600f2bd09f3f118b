package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/substifinder/backend/internal/domain"
	"github.com/substifinder/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	substitutes *usecase.SubstituteService
}

// NewHandler creates a new HTTP handler
func NewHandler(substitutes *usecase.SubstituteService) *Handler {
	return &Handler{substitutes: substitutes}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "substifinder-backend",
		"version": "1.0.0",
	})
}

// GetIteration returns the work item for one iteration together with its
// current catalog price and any substitutes already saved.
func (h *Handler) GetIteration(c *gin.Context) {
	iteration, ok := h.iterationParam(c)
	if !ok {
		return
	}

	detail, err := h.substitutes.LoadIteration(iteration)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetCandidates generates search terms for the iteration's product and
// returns ranked substitute candidates. Optional query parameters:
// max, min_similarity, ref_price, margin.
func (h *Handler) GetCandidates(c *gin.Context) {
	iteration, ok := h.iterationParam(c)
	if !ok {
		return
	}

	maxResults, _ := strconv.Atoi(c.Query("max"))
	minSimilarity, _ := strconv.Atoi(c.Query("min_similarity"))

	outcome := <-h.substitutes.FindSubstitutes(c.Request.Context(), iteration, maxResults, minSimilarity)
	if outcome.Err != nil {
		if errors.Is(outcome.Err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusNotFound, gin.H{"error": outcome.Err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": outcome.Err.Error()})
		return
	}

	candidates := outcome.Candidates
	if refPrice := c.Query("ref_price"); refPrice != "" {
		margin, _ := strconv.ParseFloat(c.Query("margin"), 64)
		candidates = h.substitutes.FilterByPriceRange(candidates, refPrice, margin)
	}

	c.JSON(http.StatusOK, gin.H{
		"nIteracao":  outcome.Iteration,
		"terms":      outcome.Terms,
		"candidates": candidates,
	})
}

// saveSubstitutesRequest is the body of a selection save.
type saveSubstitutesRequest struct {
	Substitutes []domain.Substitute `json:"substitutes" binding:"required"`
}

// SaveSubstitutes persists the operator's confirmed selection for an
// iteration, overwriting whatever was saved before.
func (h *Handler) SaveSubstitutes(c *gin.Context) {
	iteration, ok := h.iterationParam(c)
	if !ok {
		return
	}

	var req saveSubstitutesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if err := h.substitutes.SaveSubstitutes(iteration, req.Substitutes); err != nil {
		if errors.Is(err, domain.ErrInvalidIteration) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "saved", "nIteracao": iteration})
}

// manualSearchRequest is the body of an operator-typed search.
type manualSearchRequest struct {
	Query       string `json:"query" binding:"required"`
	ExcludeCode string `json:"excludeCode"`
}

// ManualSearch runs a single-term catalog search typed by the operator.
func (h *Handler) ManualSearch(c *gin.Context) {
	var req manualSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"candidates": h.substitutes.ManualSearch(req.Query, req.ExcludeCode),
	})
}

// GetProgress reports how many iterations already have substitutes saved.
func (h *Handler) GetProgress(c *gin.Context) {
	completed, total, percent := h.substitutes.Progress()
	c.JSON(http.StatusOK, gin.H{
		"completed": completed,
		"total":     total,
		"percent":   percent,
	})
}

// iterationParam parses the :n path parameter, rejecting non-positive
// or non-numeric values.
func (h *Handler) iterationParam(c *gin.Context) (int, bool) {
	iteration, err := strconv.Atoi(c.Param("n"))
	if err != nil || iteration < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "iteration must be a positive integer"})
		return 0, false
	}
	return iteration, true
}
