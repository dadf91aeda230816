// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"strings"
	"time"
)

const (
	// DefaultLimit is the page size used when none is requested.
	DefaultLimit = 100
	// MaxLimit caps the page size a client may request.
	MaxLimit = 100
)

// ListFilter narrows listing queries. Zero values mean "no restriction".
type ListFilter struct { //nolint:govet // fieldalignment: readability over optimization
	Skip       int
	Limit      int
	CategoryID *int64
	Start      *time.Time // inclusive
	End        *time.Time // inclusive
	Search     string     // case-insensitive substring
}

func (f ListFilter) page() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset = max(f.Skip, 0)
	return limit, offset
}

// build appends WHERE, ORDER BY and paging clauses to base. searchColumn is
// the column matched by Search and must be a trusted identifier.
func (f ListFilter) build(base, searchColumn string) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.CategoryID != nil {
		conds = append(conds, "category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.Start != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Start.UTC())
	}
	if f.End != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.End.UTC())
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		conds = append(conds, "LOWER("+searchColumn+") LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(strings.ToLower(search))+"%")
	}

	var sb strings.Builder
	sb.WriteString(base)
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")

	limit, offset := f.page()
	args = append(args, limit, offset)

	return sb.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
