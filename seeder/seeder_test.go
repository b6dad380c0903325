// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package seeder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/reelmind/reelmind/datatypes"
	"github.com/reelmind/reelmind/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder returns a vector derived from the text length.
type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text))}, nil
}

// recordingIndex captures upserted batches.
type recordingIndex struct {
	mu      sync.Mutex
	batches [][]datatypes.CatalogItem
	vectors [][][]float32
}

func (r *recordingIndex) Query(_ context.Context, _ []float32, _ datatypes.QueryFilters, _ int) ([]retrieval.RetrievedItem, error) {
	return nil, nil
}

func (r *recordingIndex) QueryByFilters(_ context.Context, _ datatypes.QueryFilters, _ int) ([]retrieval.RetrievedItem, error) {
	return nil, nil
}

func (r *recordingIndex) GetByTitle(_ context.Context, _ string) (*datatypes.CatalogItem, error) {
	return nil, retrieval.ErrNotFound
}

func (r *recordingIndex) FetchVector(_ context.Context, _ string) ([]float32, error) {
	return nil, retrieval.ErrNotFound
}

func (r *recordingIndex) Upsert(_ context.Context, items []datatypes.CatalogItem, vectors [][]float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch := make([]datatypes.CatalogItem, len(items))
	copy(batch, items)
	r.batches = append(r.batches, batch)
	vecs := make([][]float32, len(vectors))
	copy(vecs, vectors)
	r.vectors = append(r.vectors, vecs)
	return nil
}

func catalogItems(n int) []datatypes.CatalogItem {
	items := make([]datatypes.CatalogItem, n)
	for i := range items {
		items[i] = datatypes.CatalogItem{
			Title:   string(rune('A' + i)),
			Summary: "summary text",
			Genres:  []string{"Drama"},
			Year:    2000 + i,
		}
	}
	return items
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	content := `[
		{"title": "Heat", "summary": "A thief and a detective.", "genres": ["Crime"], "year": 1995},
		{"title": "", "summary": "no title"},
		{"title": "No Summary", "summary": ""}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	items, err := LoadCatalog(path)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Heat", items[0].Title)
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestRun_EmbedsAndBatches(t *testing.T) {
	embed := &countingEmbedder{}
	index := &recordingIndex{}
	s := New(embed, index, Config{Concurrency: 3, EmbedsPerSecond: 1000, BatchSize: 4})

	items := catalogItems(10)
	err := s.Run(context.Background(), items)

	require.NoError(t, err)
	assert.Equal(t, 10, embed.calls)
	// 10 items in batches of 4 gives 4+4+2.
	require.Len(t, index.batches, 3)
	assert.Len(t, index.batches[0], 4)
	assert.Len(t, index.batches[2], 2)
	// Vectors line up with their items.
	for _, vecs := range index.vectors {
		for _, v := range vecs {
			require.Len(t, v, 1)
			assert.Equal(t, float32(len("summary text")), v[0])
		}
	}
}

func TestRun_EmbedFailureAborts(t *testing.T) {
	embed := &countingEmbedder{err: errors.New("quota exceeded")}
	index := &recordingIndex{}
	s := New(embed, index, Config{Concurrency: 2, EmbedsPerSecond: 1000, BatchSize: 4})

	err := s.Run(context.Background(), catalogItems(6))

	assert.Error(t, err)
	assert.Empty(t, index.batches)
}

func TestRun_EmptyCatalog(t *testing.T) {
	s := New(&countingEmbedder{}, &recordingIndex{}, Config{})
	assert.NoError(t, s.Run(context.Background(), nil))
}
