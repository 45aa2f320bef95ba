package middleware

import (
	"net/http"
	"strconv"

	errs "github.com/qtforge/cortex/pkg/errors"

	"github.com/gin-gonic/gin"
)

const (
	defaultPerPageLimit = 10
	maxPerPageLimit     = 100
)

var strDefaultPerPageLimit = strconv.Itoa(defaultPerPageLimit)

// HandlePage set page parameters for paginated apis
func HandlePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		perPage := c.DefaultQuery("per_page", strDefaultPerPageLimit)
		page := c.DefaultQuery("page", "1")

		limit, err := strconv.Atoi(perPage)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, errs.ErrPerPageVal)
			return
		}
		if limit < 1 {
			limit = defaultPerPageLimit
		}
		if limit > maxPerPageLimit {
			limit = maxPerPageLimit
		}

		pageNum, err := strconv.Atoi(page)
		if err != nil || pageNum < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, errs.InvalidQueryErr("page"))
			return
		}

		c.Set("limit", limit)
		c.Set("offset", (pageNum-1)*limit)
		c.Next()
	}
}

// Page extracts the pagination window set by HandlePage.
func Page(c *gin.Context) (offset, limit int) {
	return c.GetInt("offset"), c.GetInt("limit")
}
