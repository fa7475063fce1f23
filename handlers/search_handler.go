package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/gahuily/LawChat/metrics"
	"github.com/gahuily/LawChat/searchindex"
	"github.com/gahuily/LawChat/service"
)

// SearchHandler handles HTTP requests for ranked retrieval
type SearchHandler struct {
	searchService *service.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// SearchPrecedents handles GET /search
func (h *SearchHandler) SearchPrecedents(c *gin.Context) {
	query, size, ok := h.params(c, searchindex.Precedents.Name)
	if !ok {
		return
	}

	start := time.Now()
	results, err := h.searchService.SearchPrecedents(c.Request.Context(), query, size)
	h.respond(c, searchindex.Precedents.Name, start, len(results), results, err)
}

// SearchLaws handles GET /search/laws
func (h *SearchHandler) SearchLaws(c *gin.Context) {
	query, size, ok := h.params(c, searchindex.Laws.Name)
	if !ok {
		return
	}

	start := time.Now()
	results, err := h.searchService.SearchLaws(c.Request.Context(), query, size)
	h.respond(c, searchindex.Laws.Name, start, len(results), results, err)
}

// SearchQnA handles GET /search/qna
func (h *SearchHandler) SearchQnA(c *gin.Context) {
	query, size, ok := h.params(c, searchindex.LegalQnA.Name)
	if !ok {
		return
	}

	start := time.Now()
	results, err := h.searchService.SearchQnA(c.Request.Context(), query, size)
	h.respond(c, searchindex.LegalQnA.Name, start, len(results), results, err)
}

// params reads q and size. A missing q is reported here so it never reaches the index.
func (h *SearchHandler) params(c *gin.Context, index string) (string, int, bool) {
	query := c.Query("q")
	if query == "" {
		h.badRequest(c, index, "query parameter 'q' is required")
		return "", 0, false
	}

	size := 0
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.badRequest(c, index, "size must be a positive integer")
			return "", 0, false
		}
		size = n
	}
	return query, size, true
}

func (h *SearchHandler) badRequest(c *gin.Context, index, message string) {
	metrics.SearchRequests.WithLabelValues(index, metrics.OutcomeBadRequest).Inc()
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func (h *SearchHandler) respond(c *gin.Context, index string, start time.Time, n int, results any, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyQuery):
		h.badRequest(c, index, err.Error())
	case err != nil:
		metrics.ObserveSearch(index, metrics.OutcomeUnavailable, 0, time.Since(start))
		log.Error().Err(err).Str("index", index).Msg("Search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search is temporarily unavailable"})
	default:
		metrics.ObserveSearch(index, metrics.OutcomeOK, n, time.Since(start))
		c.PureJSON(http.StatusOK, gin.H{"results": results})
	}
}
