// Package search runs compiled queries against the search backend.
package search

import (
	"context"

	"github.com/rpattn/ckanbulk/internal/domain"
)

// Request is one bounded search call.
type Request struct {
	Query          string
	Rows           int
	Start          int
	IncludePrivate bool
	IncludeDrafts  bool
}

// Response is one page of results plus the total number of matches.
type Response struct {
	Results []domain.EntityRecord
	Count   int
}

// Backend executes a search. Implementations must be safe for concurrent use.
type Backend interface {
	Search(ctx context.Context, req Request) (Response, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) (Response, error)

func (f BackendFunc) Search(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
