package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the search and health endpoints on r.
func RegisterRoutes(r gin.IRouter, search *SearchHandler, health *HealthHandler) {
	r.GET("/health", health.Health)

	group := r.Group("/search")
	{
		group.GET("", search.SearchPrecedents)
		group.GET("/laws", search.SearchLaws)
		group.GET("/qna", search.SearchQnA)
	}
}
