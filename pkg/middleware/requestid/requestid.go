// Package requestid tags each request with an identifier echoed back to the
// client and carried on the request context.
package requestid

import (
	"context"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	Header = "X-Request-ID"
	// CorrelationHeader is accepted from upstream proxies when Header is absent.
	CorrelationHeader = "X-Correlation-ID"

	ginKey = "request_id"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

type ctxKey struct{}

// Middleware reuses a well-formed inbound id or mints a UUID.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := inbound(c)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ginKey, id)
		c.Writer.Header().Set(Header, id)
		c.Request = c.Request.WithContext(WithValue(c.Request.Context(), id))
		c.Next()
	}
}

func inbound(c *gin.Context) string {
	for _, h := range []string{Header, CorrelationHeader} {
		if v := c.GetHeader(h); validID.MatchString(v) {
			return v
		}
	}
	return ""
}

// WithValue returns ctx carrying id.
func WithValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Value returns the id stored on the gin context.
func Value(c *gin.Context) string {
	id, _ := c.Get(ginKey)
	s, _ := id.(string)
	return s
}

// FromContext returns the id carried by ctx, if any.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
