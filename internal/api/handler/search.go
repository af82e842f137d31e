package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/lexpdf/internal/apperror"
	"github.com/timmy/lexpdf/internal/indexing"
)

// Searcher answers semantic queries over indexed chunks.
type Searcher interface {
	Search(ctx context.Context, req indexing.SearchRequest) (*indexing.SearchResponse, error)
}

// SearchHandler handles search-related endpoints.
type SearchHandler struct {
	searcher Searcher
	disabled error
}

// NewSearchHandler creates a new search handler.
// Parameters:
//   - searcher: chunk searcher.
//   - disabled: error the searcher returns when indexing is off; it maps to 503.
//
// Returns:
//   - *SearchHandler: initialized handler.
func NewSearchHandler(searcher Searcher, disabled error) *SearchHandler {
	return &SearchHandler{searcher: searcher, disabled: disabled}
}

// Search handles POST /api/v1/search.
func (h *SearchHandler) Search(c *gin.Context) {
	var req indexing.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	h.run(c, req)
}

// SearchGet handles GET /api/v1/search?q=...&top_k=...&process_number=...
func (h *SearchHandler) SearchGet(c *gin.Context) {
	req := indexing.SearchRequest{
		Query:         c.Query("q"),
		ProcessNumber: c.Query("process_number"),
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}
	if topK := c.Query("top_k"); topK != "" {
		n, err := strconv.Atoi(topK)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top_k must be an integer"})
			return
		}
		req.TopK = n
	}
	h.run(c, req)
}

func (h *SearchHandler) run(c *gin.Context, req indexing.SearchRequest) {
	result, err := h.searcher.Search(c.Request.Context(), req)
	if err != nil {
		switch {
		case h.disabled != nil && errors.Is(err, h.disabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case apperror.IsKind(err, apperror.KindInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}
