// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reelmind/reelmind/datatypes"
	"github.com/reelmind/reelmind/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns a fixed vector or an error.
type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vector, f.err
}

// fakeIndex answers Query from a function so tests can observe the
// filters each attempt carries.
type fakeIndex struct {
	queryFn   func(f datatypes.QueryFilters, limit int) ([]RetrievedItem, error)
	filtersFn func(f datatypes.QueryFilters, limit int) ([]RetrievedItem, error)
	byTitle   map[string]datatypes.CatalogItem
	vectors   map[string][]float32
	calls     []datatypes.QueryFilters
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, flt datatypes.QueryFilters, limit int) ([]RetrievedItem, error) {
	f.calls = append(f.calls, flt)
	return f.queryFn(flt, limit)
}

func (f *fakeIndex) QueryByFilters(_ context.Context, flt datatypes.QueryFilters, limit int) ([]RetrievedItem, error) {
	f.calls = append(f.calls, flt)
	return f.filtersFn(flt, limit)
}

func (f *fakeIndex) GetByTitle(_ context.Context, title string) (*datatypes.CatalogItem, error) {
	if item, ok := f.byTitle[title]; ok {
		return &item, nil
	}
	return nil, ErrNotFound
}

func (f *fakeIndex) FetchVector(_ context.Context, title string) ([]float32, error) {
	if v, ok := f.vectors[title]; ok {
		return v, nil
	}
	return nil, ErrNotFound
}

func (f *fakeIndex) Upsert(_ context.Context, _ []datatypes.CatalogItem, _ [][]float32) error {
	return nil
}

func item(title string, year int, score float64) RetrievedItem {
	return RetrievedItem{
		Item:  datatypes.CatalogItem{Title: title, Year: year, Genres: []string{"Drama"}},
		Score: score,
	}
}

func testConfig() SearchConfig {
	return SearchConfig{TopK: 5, Timeout: time.Second, TrendingWindowYears: 2}
}

func TestSearch_ReturnsSortedDeduped(t *testing.T) {
	idx := &fakeIndex{
		queryFn: func(_ datatypes.QueryFilters, _ int) ([]RetrievedItem, error) {
			return []RetrievedItem{
				item("Alpha", 2020, 0.81),
				item("beta", 2021, 0.93),
				item("ALPHA", 2020, 0.70), // duplicate title, different case
			}, nil
		},
	}
	r := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, idx, testConfig())

	got := r.Search(context.Background(), extract.NormalizedQuery{Summary: "drama"}, 0)

	require.Len(t, got, 2)
	assert.Equal(t, "beta", got[0].Item.Title)
	assert.Equal(t, "Alpha", got[1].Item.Title)
}

func TestSearch_RelaxationOrder(t *testing.T) {
	// Empty until all four dimensions are dropped.
	idx := &fakeIndex{
		queryFn: func(f datatypes.QueryFilters, _ int) ([]RetrievedItem, error) {
			if f.Empty() {
				return []RetrievedItem{item("Found", 2020, 0.9)}, nil
			}
			return nil, nil
		},
	}
	r := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, idx, testConfig())

	nq := extract.NormalizedQuery{
		Summary: "atlantis documentaries",
		Filters: datatypes.QueryFilters{
			Genres:      []string{"Documentary"},
			Year:        1990,
			ContentType: datatypes.ContentTypeMovie,
			Country:     "Japan",
		},
	}
	got := r.Search(context.Background(), nq, 0)

	require.Len(t, got, 1)
	// Attempt 1 has all filters. Then genre, year, content type and
	// country drop in that fixed order.
	require.Len(t, idx.calls, 5)
	assert.NotEmpty(t, idx.calls[0].Genres)
	assert.Empty(t, idx.calls[1].Genres)
	assert.NotZero(t, idx.calls[1].Year)
	assert.Zero(t, idx.calls[2].Year)
	assert.NotEmpty(t, idx.calls[2].ContentType)
	assert.Empty(t, idx.calls[3].ContentType)
	assert.NotEmpty(t, idx.calls[3].Country)
	assert.True(t, idx.calls[4].Empty())
}

func TestSearch_RelaxesBelowRequestedCount(t *testing.T) {
	// Two genre matches exist, but the caller wants five: the genre
	// filter is dropped and the relaxed pass tops up the result.
	idx := &fakeIndex{
		queryFn: func(f datatypes.QueryFilters, _ int) ([]RetrievedItem, error) {
			if len(f.Genres) > 0 {
				return []RetrievedItem{
					item("Alpha", 2020, 0.90),
					item("Beta", 2019, 0.80),
				}, nil
			}
			return []RetrievedItem{
				item("Gamma", 2021, 0.95),
				item("alpha", 2020, 0.90), // already retrieved, dropped
				item("Delta", 2018, 0.70),
				item("Beta", 2019, 0.80), // already retrieved, dropped
				item("Epsilon", 2017, 0.60),
				item("Zeta", 2016, 0.50),
			}, nil
		},
	}
	r := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, idx, testConfig())

	nq := extract.NormalizedQuery{
		Summary: "crime movies",
		Filters: datatypes.QueryFilters{Genres: []string{"Crime"}},
	}
	got := r.Search(context.Background(), nq, 0)

	require.Len(t, got, 5)
	require.Len(t, idx.calls, 2)
	// Stricter-pass matches keep their rank ahead of relaxed-pass
	// top-ups, even when a top-up scores higher.
	assert.Equal(t, "Alpha", got[0].Item.Title)
	assert.Equal(t, "Beta", got[1].Item.Title)
	assert.Equal(t, "Gamma", got[2].Item.Title)
	assert.Equal(t, "Delta", got[3].Item.Title)
	assert.Equal(t, "Epsilon", got[4].Item.Title)
}

func TestSearch_FullStrictPassDoesNotRelax(t *testing.T) {
	idx := &fakeIndex{
		queryFn: func(_ datatypes.QueryFilters, _ int) ([]RetrievedItem, error) {
			return []RetrievedItem{
				item("A", 2020, 0.9), item("B", 2020, 0.8), item("C", 2020, 0.7),
				item("D", 2020, 0.6), item("E", 2020, 0.5),
			}, nil
		},
	}
	r := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, idx, testConfig())

	nq := extract.NormalizedQuery{
		Summary: "crime movies",
		Filters: datatypes.QueryFilters{Genres: []string{"Crime"}},
	}
	got := r.Search(context.Background(), nq, 0)

	require.Len(t, got, 5)
	assert.Len(t, idx.calls, 1)
}

func TestSearch_RelaxationTerminates(t *testing.T) {
	idx := &fakeIndex{
		queryFn: func(_ datatypes.QueryFilters, _ int) ([]RetrievedItem, error) {
			return nil, nil
		},
	}
	r := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, idx, testConfig())

	nq := extract.NormalizedQuery{
		Summary: "nothing matches this",
		Filters: datatypes.QueryFilters{Genres: []string{"Horror"}, Country: "France"},
	}
	got := r.Search(context.Background(), nq, 0)

	assert.NotNil(t, got)
	assert.Empty(t, got)
	// Full filters, then genre dropped, then country dropped.
	assert.Len(t, idx.calls, 3)
}

func TestSearch_EmbedFailureDegrades(t *testing.T) {
	idx := &fakeIndex{
		queryFn: func(_ datatypes.QueryFilters, _ int) ([]RetrievedItem, error) {
			t.Fatal("index must not be queried when embedding fails")
			return nil, nil
		},
	}
	r := NewRetriever(&fakeEmbedder{err: errors.New("embed down")}, idx, testConfig())

	got := r.Search(context.Background(), extract.NormalizedQuery{Summary: "anything"}, 0)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearch_IndexFailureDegrades(t *testing.T) {
	idx := &fakeIndex{
		queryFn: func(_ datatypes.QueryFilters, _ int) ([]RetrievedItem, error) {
			return nil, errors.New("weaviate down")
		},
	}
	r := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, idx, testConfig())

	got := r.Search(context.Background(), extract.NormalizedQuery{Summary: "anything"}, 0)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearch_LimitApplied(t *testing.T) {
	idx := &fakeIndex{
		queryFn: func(_ datatypes.QueryFilters, _ int) ([]RetrievedItem, error) {
			return []RetrievedItem{
				item("A", 2020, 0.9), item("B", 2020, 0.8), item("C", 2020, 0.7),
			}, nil
		},
	}
	r := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, idx, testConfig())

	got := r.Search(context.Background(), extract.NormalizedQuery{Summary: "x"}, 2)

	assert.Len(t, got, 2)
}

func TestSimilar_ExcludesReference(t *testing.T) {
	idx := &fakeIndex{
		vectors: map[string][]float32{"Inception": {0.5, 0.5}},
		queryFn: func(_ datatypes.QueryFilters, limit int) ([]RetrievedItem, error) {
			return []RetrievedItem{
				item("Inception", 2010, 1.0),
				item("Interstellar", 2014, 0.88),
				item("Tenet", 2020, 0.85),
			}, nil
		},
	}
	r := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, idx, testConfig())

	got, err := r.Similar(context.Background(), "Inception", 2)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Interstellar", got[0].Item.Title)
	assert.Equal(t, "Tenet", got[1].Item.Title)
}

func TestSimilar_UnknownTitle(t *testing.T) {
	idx := &fakeIndex{vectors: map[string][]float32{}}
	r := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, idx, testConfig())

	_, err := r.Similar(context.Background(), "Nope", 5)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchByFilters_SurfacesErrors(t *testing.T) {
	idx := &fakeIndex{
		filtersFn: func(_ datatypes.QueryFilters, _ int) ([]RetrievedItem, error) {
			return nil, errors.New("weaviate down")
		},
	}
	r := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, idx, testConfig())

	_, err := r.SearchByFilters(context.Background(), datatypes.QueryFilters{Genres: []string{"Drama"}}, 5)

	assert.Error(t, err)
}

func TestCatalogObjectID_Deterministic(t *testing.T) {
	// Re-seeding must address the same object, whatever the title's
	// casing or padding.
	a := catalogObjectID("Heat")
	assert.Equal(t, a, catalogObjectID("heat"))
	assert.Equal(t, a, catalogObjectID("  Heat "))
	assert.NotEqual(t, a, catalogObjectID("Collateral"))
	assert.NotEmpty(t, string(a))
}

func TestTrending_CategoryMapping(t *testing.T) {
	var lastFilter datatypes.QueryFilters
	idx := &fakeIndex{
		filtersFn: func(f datatypes.QueryFilters, _ int) ([]RetrievedItem, error) {
			lastFilter = f
			return []RetrievedItem{item("Recent Hit", time.Now().Year(), 0)}, nil
		},
	}
	r := NewRetriever(&fakeEmbedder{vector: []float32{0.1}}, idx, testConfig())

	t.Run("content type category", func(t *testing.T) {
		_, err := r.Trending(context.Background(), "movies", 5)
		require.NoError(t, err)
		assert.Equal(t, datatypes.ContentTypeMovie, lastFilter.ContentType)
		assert.Equal(t, time.Now().Year()-2, lastFilter.YearMin)
	})

	t.Run("genre category", func(t *testing.T) {
		_, err := r.Trending(context.Background(), "comedy", 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"Comedy"}, lastFilter.Genres)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := r.Trending(context.Background(), "underwater-basket-weaving", 5)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
