package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mailplatform/backend/internal/monitoring"
)

// HTTPMetrics HTTP 指标中间件，按路由模板而不是原始路径记录
func HTTPMetrics(metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RecordHTTPRequest(c.Request.Method, endpoint, strconv.Itoa(status), time.Since(start))

		if status >= 500 {
			metrics.RecordError("http_error", "http")
		}
	}
}
