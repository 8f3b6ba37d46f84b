package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestObserver records one HTTP exchange.
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Metrics times every request under its route template. Unmatched paths share
// one label so scanners cannot blow up series cardinality. Paths in skip, such
// as the scrape endpoint itself, are not recorded.
func Metrics(observer RequestObserver, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if observer == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, ok := skipped[route]; ok {
			return
		}
		if route == "" {
			route = "unmatched"
		}
		observer.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
