// Package pagination turns a generic search request into a backend-agnostic
// query descriptor (skip, take, predicate, ordering).
package pagination

import (
	"fmt"
	"math"
	"strings"

	appErrors "github.com/muchasmas/scholarship-api/pkg/errors"
)

const (
	DefaultPageIndex = 1
	DefaultPageSize  = 10
	MaxPageSize      = 100
	// StatusAll disables status filtering.
	StatusAll = "all"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Request is the search request accepted by every list endpoint.
type Request struct {
	PageIndex int       `form:"pageIndex" json:"pageIndex"`
	PageSize  int       `form:"pageSize" json:"pageSize"`
	Query     string    `form:"query" json:"query"`
	Status    string    `form:"status" json:"status"`
	SortKey   string    `form:"sort[key]" json:"sortKey"`
	SortOrder Direction `form:"sort[order]" json:"sortOrder"`
}

// Order is a single ordering term. Field is whatever the backend understands
// (a column name, a qualified column, a document path).
type Order struct {
	Field     string
	Direction Direction
}

// FieldSet lists the sort keys a target entity accepts.
type FieldSet map[string]struct{}

// NewFieldSet builds a FieldSet from names.
func NewFieldSet(fields ...string) FieldSet {
	set := make(FieldSet, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Has reports whether key is a known field.
func (s FieldSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// WhereFunc builds an entity-specific predicate from the text query and status.
type WhereFunc[P any] func(query, status string) P

// OrderFunc builds an entity-specific ordering. It returns nil when no ordering applies.
type OrderFunc func(key string, dir Direction) (*Order, error)

// Options are the injectable parts of Build.
type Options[P any] struct {
	Fields FieldSet
	Where  WhereFunc[P]
	Order  OrderFunc
}

// Query is the descriptor produced by Build.
type Query[P any] struct {
	Skip      int
	Take      int
	Where     P
	OrderBy   *Order
	PageIndex int
	PageSize  int
}

// Result is the paginated list envelope.
type Result[T any] struct {
	Data      []T `json:"data"`
	Total     int `json:"total"`
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
}

// NewResult wraps a page of rows with the query's paging metadata.
func NewResult[T any, P any](data []T, total int, q Query[P]) Result[T] {
	if data == nil {
		data = []T{}
	}
	return Result[T]{Data: data, Total: total, PageIndex: q.PageIndex, PageSize: q.PageSize}
}

// Normalize applies defaults: pageIndex 1, pageSize 10 (at most 100), status
// "all", order asc.
func (r Request) Normalize() Request {
	if r.PageIndex < 1 {
		r.PageIndex = DefaultPageIndex
	}
	if r.PageSize < 1 {
		r.PageSize = DefaultPageSize
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
	r.Query = strings.TrimSpace(r.Query)
	r.Status = strings.TrimSpace(r.Status)
	if r.Status == "" {
		r.Status = StatusAll
	}
	r.SortKey = strings.TrimSpace(r.SortKey)
	r.SortOrder = Direction(strings.ToLower(strings.TrimSpace(string(r.SortOrder))))
	if r.SortOrder == "" {
		r.SortOrder = Asc
	}
	return r
}

// Build translates req into a Query. It has no side effects.
func Build[P any](req Request, opts Options[P]) (Query[P], error) {
	req = req.Normalize()
	if req.SortOrder != Asc && req.SortOrder != Desc {
		return Query[P]{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("sort order must be asc or desc, got %q", req.SortOrder))
	}
	if req.PageIndex-1 > math.MaxInt32/req.PageSize {
		return Query[P]{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("page index %d is out of range", req.PageIndex))
	}

	q := Query[P]{
		Skip:      (req.PageIndex - 1) * req.PageSize,
		Take:      req.PageSize,
		PageIndex: req.PageIndex,
		PageSize:  req.PageSize,
	}

	if opts.Where != nil {
		q.Where = opts.Where(req.Query, req.Status)
	}

	switch {
	case opts.Order != nil:
		order, err := opts.Order(req.SortKey, req.SortOrder)
		if err != nil {
			return Query[P]{}, err
		}
		q.OrderBy = order
	case req.SortKey != "":
		if !opts.Fields.Has(req.SortKey) {
			return Query[P]{}, InvalidSortKey(req.SortKey)
		}
		q.OrderBy = &Order{Field: req.SortKey, Direction: req.SortOrder}
	}

	return q, nil
}

// InvalidSortKey builds the error returned for unknown sort keys.
func InvalidSortKey(key string) error {
	return appErrors.Clone(appErrors.ErrInvalidSortKey, fmt.Sprintf("order key %q does not exist", key))
}

// SQL renders the ordering as an ORDER BY fragment body, e.g. "a.last_name DESC".
func (o *Order) SQL() string {
	if o == nil || o.Field == "" {
		return ""
	}
	dir := "ASC"
	if o.Direction == Desc {
		dir = "DESC"
	}
	return o.Field + " " + dir
}
