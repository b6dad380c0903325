// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package retrieval performs filtered vector search over the catalog
// index. The Retriever embeds the normalized query, runs kNN with the
// extracted filters, and relaxes filters in a fixed order when a
// filtered search comes back empty.
package retrieval

import (
	"context"
	"errors"

	"github.com/reelmind/reelmind/datatypes"
)

// ErrNotFound is returned by title lookups when no catalog item
// matches.
var ErrNotFound = errors.New("catalog item not found")

// RetrievedItem is a catalog item together with its similarity score.
// Score is in [0, 1] for vector queries and 0 for filter-only queries,
// which have no semantic distance to report.
type RetrievedItem struct {
	Item  datatypes.CatalogItem
	Score float64
}

// Index is the vector index abstraction over the catalog.
//
// # Description
//
// Index hides the Weaviate client behind an interface so the retriever
// and the orchestration core can be tested against in-memory fakes.
// All methods honor ctx cancellation.
type Index interface {
	// Query runs kNN over the catalog with optional structural
	// filters. Results come back in descending score order.
	Query(ctx context.Context, vector []float32, f datatypes.QueryFilters, limit int) ([]RetrievedItem, error)

	// QueryByFilters returns items matching the filters without any
	// vector, ordered by release year descending as a recency proxy.
	// Scores are 0.
	QueryByFilters(ctx context.Context, f datatypes.QueryFilters, limit int) ([]RetrievedItem, error)

	// GetByTitle fetches one item by exact title. Returns ErrNotFound
	// when absent.
	GetByTitle(ctx context.Context, title string) (*datatypes.CatalogItem, error)

	// FetchVector returns the stored embedding for a title. Returns
	// ErrNotFound when absent.
	FetchVector(ctx context.Context, title string) ([]float32, error)

	// Upsert writes items and their vectors to the index. Lengths of
	// items and vectors must match.
	Upsert(ctx context.Context, items []datatypes.CatalogItem, vectors [][]float32) error
}
