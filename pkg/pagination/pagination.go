package pagination

import (
	"net/http"
	"strconv"
	"strings"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SQL returns the SQL keyword for the direction. Anything that is not Desc
// sorts ascending.
func (d Direction) SQL() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Params holds skip/first pagination and ordering parameters extracted from a
// query string. A nil First means unbounded (no limit clause).
type Params struct {
	First     *int32    `json:"first,omitempty"`
	Skip      uint64    `json:"skip"`
	OrderBy   string    `json:"order_by,omitempty"`
	Direction Direction `json:"direction"`
}

// FromRequest extracts pagination parameters from the request query string:
// `first`, `skip`, `order_by`, and `direction`. Missing or malformed values
// fall back to the defaults: no limit, skip 0, caller-defined order field,
// ascending.
func FromRequest(r *http.Request) Params {
	p := Params{Direction: Asc}

	q := r.URL.Query()
	if v := q.Get("first"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil && n >= 0 {
			first := int32(n)
			p.First = &first
		}
	}
	if v := q.Get("skip"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			p.Skip = n
		}
	}
	p.OrderBy = q.Get("order_by")
	if strings.EqualFold(q.Get("direction"), string(Desc)) {
		p.Direction = Desc
	}

	return p
}

// Page is a bounded, ordered slice of a larger result set plus count
// metadata. It is a query result, never persisted.
type Page[T any] struct {
	Nodes       []T    `json:"nodes"`
	TotalCount  uint64 `json:"total_count"`
	HasNextPage bool   `json:"has_next_page"`
}

// NewPage builds a Page from the returned nodes, the filter-wide total count
// (ignoring skip/limit), and the skip that produced the nodes.
func NewPage[T any](nodes []T, totalCount, skip uint64) Page[T] {
	if nodes == nil {
		nodes = []T{}
	}
	return Page[T]{
		Nodes:       nodes,
		TotalCount:  totalCount,
		HasNextPage: skip+uint64(len(nodes)) < totalCount,
	}
}
