// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/reelmind/reelmind/datatypes"
	"github.com/reelmind/reelmind/extract"
	"github.com/reelmind/reelmind/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("reelmind/retrieval")

// SearchConfig holds tunable retrieval parameters.
type SearchConfig struct {
	// TopK is the default number of items returned by a search.
	TopK int

	// MinScore drops vector results below this certainty. Zero keeps
	// everything.
	MinScore float64

	// Timeout bounds each index round trip.
	Timeout time.Duration

	// TrendingWindowYears is how far back "trending" looks.
	TrendingWindowYears int
}

// DefaultSearchConfig returns the configuration from environment
// variables, with production defaults for unset values.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		TopK:                getEnvInt("SEARCH_TOP_K", 5),
		MinScore:            getEnvFloat("SEARCH_MIN_SCORE", 0),
		Timeout:             time.Duration(getEnvInt("SEARCH_TIMEOUT_MS", 5000)) * time.Millisecond,
		TrendingWindowYears: getEnvInt("SEARCH_TRENDING_WINDOW_YEARS", 2),
	}
}

// getEnvInt returns an environment variable as int, or defaultVal if
// not set/invalid.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvFloat returns an environment variable as float64, or
// defaultVal if not set/invalid.
func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

// relaxationOrder is the fixed order in which filter dimensions are
// dropped when a filtered search returns nothing. Genre goes first
// because it is the most frequently over-constrained dimension.
var relaxationOrder = []string{"genre", "year", "content_type", "country"}

// Retriever embeds queries and searches the catalog index.
//
// # Description
//
// Retriever wires the Embedder and the Index together. The
// conversational Search path degrades gracefully: embedding or index
// failures are logged and produce an empty result rather than an
// error, so the pipeline can still answer from the language model
// alone. The direct catalog lookups used by the non-conversational
// endpoints surface their errors.
type Retriever struct {
	embed llm.Embedder
	index Index
	cfg   SearchConfig
}

// NewRetriever builds a Retriever, applying defaults for zero config
// fields.
func NewRetriever(embed llm.Embedder, index Index, cfg SearchConfig) *Retriever {
	def := DefaultSearchConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.TrendingWindowYears <= 0 {
		cfg.TrendingWindowYears = def.TrendingWindowYears
	}
	return &Retriever{embed: embed, index: index, cfg: cfg}
}

// Search runs the conversational retrieval path: embed the summary,
// query with the extracted filters, and relax filters in the fixed
// order until the requested count is reached or no filters remain.
// Results from stricter passes rank ahead of relaxed-pass results and
// titles never repeat across passes.
//
// # Inputs
//
//   - ctx: caller context.
//   - nq: the normalized query from extraction.
//   - limit: result count; 0 uses the configured TopK.
//
// # Outputs
//
//   - []RetrievedItem: stricter passes first, score-descending within
//     a pass, possibly empty. Never nil. Internal failures degrade to
//     whatever was already retrieved.
func (r *Retriever) Search(ctx context.Context, nq extract.NormalizedQuery, limit int) []RetrievedItem {
	ctx, span := tracer.Start(ctx, "retrieval.Search")
	defer span.End()

	if limit <= 0 {
		limit = r.cfg.TopK
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	vector, err := r.embed.Embed(embedCtx, nq.Summary)
	cancel()
	if err != nil {
		slog.Error("Embedding failed, returning empty retrieval", "error", err)
		span.SetAttributes(attribute.String("retrieval.degraded", "embed_failed"))
		return []RetrievedItem{}
	}

	f := nq.Filters
	relaxed := 0
	merged := make([]RetrievedItem, 0, limit)
	seen := make(map[string]bool, limit)
	for {
		queryCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		items, err := r.index.Query(queryCtx, vector, f, limit)
		cancel()
		if err != nil {
			slog.Error("Vector query failed, keeping results retrieved so far",
				"error", err, "have", len(merged))
			span.SetAttributes(attribute.String("retrieval.degraded", "query_failed"))
			break
		}

		for _, it := range r.postProcess(items, limit) {
			key := strings.ToLower(it.Item.Title)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, it)
			if len(merged) == limit {
				break
			}
		}

		if len(merged) >= limit || f.Empty() {
			break
		}
		dropped, ok := relaxOne(&f)
		if !ok {
			break
		}
		relaxed++
		slog.Debug("Relaxing filters below requested count", "dropped", dropped, "have", len(merged))
	}

	span.SetAttributes(
		attribute.Int("retrieval.results", len(merged)),
		attribute.Int("retrieval.relaxations", relaxed),
	)
	return merged
}

// relaxOne clears the first still-set filter dimension in the fixed
// relaxation order. Returns the dropped dimension name and false when
// nothing was left to drop.
func relaxOne(f *datatypes.QueryFilters) (string, bool) {
	for _, dim := range relaxationOrder {
		switch dim {
		case "genre":
			if len(f.Genres) > 0 {
				f.Genres = nil
				return dim, true
			}
		case "year":
			if f.Year != 0 || f.YearMin != 0 {
				f.Year = 0
				f.YearMin = 0
				return dim, true
			}
		case "content_type":
			if f.ContentType != "" {
				f.ContentType = ""
				return dim, true
			}
		case "country":
			if f.Country != "" {
				f.Country = ""
				return dim, true
			}
		}
	}
	return "", false
}

// postProcess dedupes by title, applies the score floor, and enforces
// descending score order and the limit.
func (r *Retriever) postProcess(items []RetrievedItem, limit int) []RetrievedItem {
	seen := make(map[string]bool, len(items))
	out := make([]RetrievedItem, 0, len(items))
	for _, it := range items {
		key := strings.ToLower(it.Item.Title)
		if seen[key] {
			continue
		}
		if r.cfg.MinScore > 0 && it.Score > 0 && it.Score < r.cfg.MinScore {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SearchByFilters returns catalog items matching the filters without
// semantic search, newest first. Used by the direct catalog endpoints,
// so errors surface to the caller.
func (r *Retriever) SearchByFilters(ctx context.Context, f datatypes.QueryFilters, limit int) ([]datatypes.CatalogItem, error) {
	ctx, span := tracer.Start(ctx, "retrieval.SearchByFilters")
	defer span.End()

	if limit <= 0 {
		limit = r.cfg.TopK
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	items, err := r.index.QueryByFilters(ctx, f, limit)
	if err != nil {
		return nil, fmt.Errorf("filter search failed: %w", err)
	}

	out := make([]datatypes.CatalogItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		key := strings.ToLower(it.Item.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it.Item)
	}
	return out, nil
}

// FilmDetails fetches one catalog item by title. Returns ErrNotFound
// when the title is not in the catalog.
func (r *Retriever) FilmDetails(ctx context.Context, title string) (*datatypes.CatalogItem, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	return r.index.GetByTitle(ctx, title)
}

// Similar finds catalog items nearest to a reference title's stored
// vector, excluding the reference itself. Returns ErrNotFound when the
// reference title is unknown.
func (r *Retriever) Similar(ctx context.Context, title string, limit int) ([]RetrievedItem, error) {
	ctx, span := tracer.Start(ctx, "retrieval.Similar")
	defer span.End()

	if limit <= 0 {
		limit = r.cfg.TopK
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	vector, err := r.index.FetchVector(fetchCtx, title)
	cancel()
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	// Fetch one extra so the reference itself can be dropped.
	items, err := r.index.Query(queryCtx, vector, datatypes.QueryFilters{}, limit+1)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}

	out := make([]RetrievedItem, 0, limit)
	for _, it := range items {
		if strings.EqualFold(it.Item.Title, title) {
			continue
		}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Trending returns recent catalog items for a category. The category
// may be a content type ("movies", "tv_shows"), a genre name, or
// "all"; unknown categories return ErrNotFound.
func (r *Retriever) Trending(ctx context.Context, category string, limit int) ([]datatypes.CatalogItem, error) {
	var f datatypes.QueryFilters
	if ct, ok := datatypes.CanonicalContentType(category); ok {
		f.ContentType = ct
	} else if g, ok := datatypes.CanonicalGenre(category); ok {
		f.Genres = []string{g}
	} else if strings.ToLower(strings.TrimSpace(category)) != "all" {
		return nil, ErrNotFound
	}
	f.YearMin = time.Now().Year() - r.cfg.TrendingWindowYears

	return r.SearchByFilters(ctx, f, limit)
}
