package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/muchasmas/scholarship-api/internal/middleware"
	"github.com/muchasmas/scholarship-api/internal/models"
	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
	"github.com/muchasmas/scholarship-api/pkg/pagination"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorID returns the caller's account id or "" for anonymous requests.
func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.AccountID
	}
	return ""
}

// pageRequest binds pageIndex, pageSize, query, status and sort[key]/sort[order].
func pageRequest(c *gin.Context) (pagination.Request, error) {
	var req pagination.Request
	if err := c.ShouldBindQuery(&req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid search parameters")
	}
	return req, nil
}

func int64Param(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer")
	}
	return id, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" required")
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer")
	}
	return v, nil
}
