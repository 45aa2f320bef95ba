package tools

import (
	"net/http"

	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/lumber"

	"github.com/gin-gonic/gin"
)

// HandleStatus returns the cached probe results for the external toolchain.
func HandleStatus(toolFinder core.ToolFinder, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, toolFinder.Tools())
	}
}

// HandleRefresh re-probes the toolchain and returns the fresh results.
func HandleRefresh(toolFinder core.ToolFinder, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger.Infof("re-probing external toolchain")
		c.JSON(http.StatusOK, toolFinder.Refresh(c.Request.Context()))
	}
}
