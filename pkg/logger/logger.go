package logger

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/muchasmas/scholarship-api/pkg/config"
	"github.com/muchasmas/scholarship-api/pkg/middleware/requestid"
)

// AccountIDKey is the gin context key the auth layer fills with the caller's
// account id so access logs can attribute requests.
const AccountIDKey = "account_id"

// New builds the process logger. Production uses sampling and JSON.
func New(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	}

	zapCfg.Encoding = "json"
	if cfg.Log.Format == "console" {
		zapCfg.Encoding = "console"
	}
	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build(zap.Fields(
		zap.String("service", "scholarship-api"),
		zap.String("env", cfg.Env),
	))
}

// FromContext returns base tagged with the request id carried by ctx.
func FromContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if id := requestid.FromContext(ctx); id != "" {
		return base.With(zap.String("request_id", id))
	}
	return base
}

// GinMiddleware writes one access log line per request. Failed writes are
// raised to warn, server errors to error.
func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if id, ok := c.Get(AccountIDKey); ok {
			if s, _ := id.(string); s != "" {
				fields = append(fields, zap.String("account_id", s))
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		log := FromContext(c.Request.Context(), l)
		switch {
		case status >= 500:
			log.Error("http_request", fields...)
		case status >= 400 && c.Request.Method != "GET":
			log.Warn("http_request", fields...)
		default:
			log.Info("http_request", fields...)
		}
	}
}
