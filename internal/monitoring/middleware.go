package monitoring

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// unmatchedRoute groups requests that hit no registered route, so
// arbitrary paths cannot grow the route table.
const unmatchedRoute = "unmatched"

// MonitoringMiddleware records request metrics and logs every request.
// Failed requests to predictRoute are also counted as prediction failures.
func MonitoringMiddleware(metrics *Metrics, logger *Logger, predictRoute string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.IncrementRequest()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.RecordResponseTime(elapsed)
		metrics.RecordRequestByStatus(status)
		metrics.RecordRequestByRoute(route)

		if status >= 400 {
			metrics.IncrementError()
			if route == predictRoute {
				metrics.IncrementPredictionFailure()
			}
		}

		method := c.Request.Method
		ip := c.ClientIP()
		logger.RequestLogger(method, route, ip, c.GetHeader("User-Agent"), status, elapsed)

		for _, err := range c.Errors {
			logger.APIErrorLogger(err.Err, method, route, ip, status)
		}

		if status >= 500 {
			logger.SystemLogger("server_error", fmt.Sprintf("Status %d for %s %s", status, method, c.Request.URL.Path))
		}
	}
}
