package repository

import (
	"fmt"
	"strings"

	"github.com/muchasmas/scholarship-api/pkg/pagination"
)

// likePattern turns a free-text query into a case-insensitive substring pattern.
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(search)) + "%"
}

// orderClause renders ORDER BY with a fallback and a unique tiebreaker so that
// pages never overlap.
func orderClause(order *pagination.Order, fallback, tiebreaker string) string {
	clause := order.SQL()
	if clause == "" {
		clause = fallback
	}
	return fmt.Sprintf("ORDER BY %s, %s", clause, tiebreaker)
}

// limitClause renders LIMIT/OFFSET for a pagination query.
func limitClause(take, skip int) string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", take, skip)
}
