package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dealhound/dealhound/aggregator"
	"github.com/dealhound/dealhound/models"
)

// Search returns a handler for POST /api/v1/search. The aggregate never
// errors: degraded sources contribute nothing, so the response is a 200
// with whatever survived, possibly empty.
func Search(agg *aggregator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.SearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "invalid request body: " + err.Error(),
				},
			})
			return
		}

		prefs := models.UserPreferences{}
		if req.Preferences != nil {
			prefs = *req.Preferences
		}

		products := agg.SearchRanked(c.Request.Context(), req.Filters(), prefs)
		c.JSON(http.StatusOK, models.SearchResponse{
			Success:  true,
			Count:    len(products),
			Products: products,
		})
	}
}
