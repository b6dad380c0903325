// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package seeder loads a catalog file, embeds each item's summary and
// writes items with their vectors into the index. Embedding calls run
// concurrently under a rate limit so seeding large catalogs does not
// trip provider quotas.
package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/reelmind/reelmind/datatypes"
	"github.com/reelmind/reelmind/llm"
	"github.com/reelmind/reelmind/retrieval"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Config holds seeding tunables.
type Config struct {
	// Concurrency is the number of parallel embedding workers.
	Concurrency int

	// EmbedsPerSecond rate-limits embedding calls across workers.
	EmbedsPerSecond rate.Limit

	// BatchSize is how many items go into one index upsert.
	BatchSize int
}

// DefaultConfig returns the production seeding configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:     4,
		EmbedsPerSecond: 10,
		BatchSize:       100,
	}
}

// Seeder embeds and indexes catalog items.
type Seeder struct {
	embed llm.Embedder
	index retrieval.Index
	cfg   Config
}

// New builds a Seeder, applying defaults for zero config fields.
func New(embed llm.Embedder, index retrieval.Index, cfg Config) *Seeder {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.EmbedsPerSecond <= 0 {
		cfg.EmbedsPerSecond = def.EmbedsPerSecond
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	return &Seeder{embed: embed, index: index, cfg: cfg}
}

// LoadCatalog reads a JSON array of catalog items from path, dropping
// items without a title or summary.
func LoadCatalog(path string) ([]datatypes.CatalogItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var items []datatypes.CatalogItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	valid := items[:0]
	skipped := 0
	for _, item := range items {
		if item.Title == "" || item.Summary == "" {
			skipped++
			continue
		}
		valid = append(valid, item)
	}
	if skipped > 0 {
		slog.Warn("Skipped catalog items missing title or summary", "count", skipped)
	}
	return valid, nil
}

// Run embeds every item and upserts them in batches.
//
// # Description
//
// Embedding runs on a worker pool bounded by Concurrency and the
// shared rate limiter. Any embedding failure aborts the whole run; a
// partially seeded index is safe to re-seed because upserts are
// idempotent on re-run.
func (s *Seeder) Run(ctx context.Context, items []datatypes.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}

	vectors := make([][]float32, len(items))
	limiter := rate.NewLimiter(s.cfg.EmbedsPerSecond, 1)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := range items {
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			vec, err := s.embed.Embed(ctx, items[i].Summary)
			if err != nil {
				return fmt.Errorf("failed to embed %q: %w", items[i].Title, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Embedded catalog items", "count", len(items))

	for start := 0; start < len(items); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(items))
		if err := s.index.Upsert(ctx, items[start:end], vectors[start:end]); err != nil {
			return fmt.Errorf("failed to upsert batch at offset %d: %w", start, err)
		}
		slog.Info("Upserted catalog batch", "offset", start, "size", end-start)
	}
	return nil
}
