// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compose

import (
	"strings"
	"testing"

	"github.com/reelmind/reelmind/datatypes"
	"github.com/reelmind/reelmind/extract"
	"github.com/reelmind/reelmind/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryInput(raw string, filters datatypes.QueryFilters) Input {
	return Input{Query: extract.NormalizedQuery{Raw: raw, Summary: raw, Filters: filters}}
}

func someResults() []retrieval.RetrievedItem {
	return []retrieval.RetrievedItem{
		{Item: datatypes.CatalogItem{Title: "Heat", Year: 1995, Genres: []string{"Crime"}, ContentType: "Movie", Country: "United States", Summary: "A thief and a detective circle each other in Los Angeles."}, Score: 0.91},
		{Item: datatypes.CatalogItem{Title: "Collateral", Year: 2004, Genres: []string{"Thriller"}, ContentType: "Movie", Country: "United States", Summary: "A cab driver is forced to chauffeur a hitman."}, Score: 0.84},
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want string
	}{
		{
			"follow up needs history",
			Input{
				Query:   extract.NormalizedQuery{Raw: "tell me more about the first one"},
				History: []datatypes.Message{{Role: "user", Text: "action movies"}},
				Results: someResults(),
			},
			TypeFollowUp,
		},
		{
			"follow up vietnamese",
			Input{
				Query:   extract.NormalizedQuery{Raw: "phim đó có hay không"},
				History: []datatypes.Message{{Role: "user", Text: "phim hành động"}},
			},
			TypeFollowUp,
		},
		{"similar english", queryInput("movies like Heat", datatypes.QueryFilters{}), TypeSimilar},
		{"similar vietnamese", queryInput("phim giống Inception", datatypes.QueryFilters{}), TypeSimilar},
		{"detailed info", queryInput("what is Inception about", datatypes.QueryFilters{}), TypeDetailed},
		{"detailed vietnamese", queryInput("ai đóng vai chính", datatypes.QueryFilters{}), TypeDetailed},
		{"trending", queryInput("what's trending right now", datatypes.QueryFilters{}), TypeTrending},
		{
			"genre filter needs extracted genres and list phrasing",
			queryInput("list all the horror movies you have", datatypes.QueryFilters{Genres: []string{"Horror"}}),
			TypeGenreFilter,
		},
		{
			"genres without list phrasing are a plain recommendation",
			queryInput("good war movies", datatypes.QueryFilters{Genres: []string{"War"}}),
			TypeMovieRec,
		},
		{"tv rec by wording", queryInput("good tv shows please", datatypes.QueryFilters{}), TypeTVRec},
		{
			"tv rec by extracted content type",
			queryInput("something korean to binge", datatypes.QueryFilters{ContentType: datatypes.ContentTypeTVShow}),
			TypeTVRec,
		},
		{"movie rec by wording", queryInput("recommend something exciting", datatypes.QueryFilters{}), TypeMovieRec},
		{
			"movie rec by filters alone",
			queryInput("something from Japan", datatypes.QueryFilters{Country: "Japan"}),
			TypeMovieRec,
		},
		{"small talk falls through", queryInput("hello!", datatypes.QueryFilters{}), TypeGeneralChat},
		{"off topic falls through", queryInput("how do I fix my car engine", datatypes.QueryFilters{}), TypeGeneralChat},
		{
			"follow up phrasing without history is not follow up",
			queryInput("tell me more about good movies", datatypes.QueryFilters{}),
			TypeMovieRec,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.in))
		})
	}
}

func TestDetect_Override(t *testing.T) {
	in := queryInput("recommend something exciting", datatypes.QueryFilters{})

	in.Override = TypeGeneralChat
	assert.Equal(t, TypeGeneralChat, Detect(in))

	in.Override = "no_such_template"
	assert.Equal(t, TypeMovieRec, Detect(in))

	// The fallback marker is not a template and cannot be forced.
	in.Override = TypeFallback
	assert.Equal(t, TypeMovieRec, Detect(in))
}

func TestCompose_RecommendationIncludesContextAndCount(t *testing.T) {
	c := NewComposer()
	in := Input{
		Query:   extract.NormalizedQuery{Raw: "crime movies please", Filters: datatypes.QueryFilters{Genres: []string{"Crime"}}},
		Results: someResults(),
	}

	spec := c.Compose(in)

	assert.Equal(t, TypeMovieRec, spec.ResponseType)
	assert.Equal(t, DefaultCount, spec.Count)
	assert.Contains(t, spec.User, "Heat (1995)")
	assert.Contains(t, spec.User, "Collateral (2004)")
	assert.Contains(t, spec.User, "Recommend exactly 5 titles")
	assert.NotEmpty(t, spec.Functions)
}

func TestCompose_ExplicitCount(t *testing.T) {
	c := NewComposer()
	in := Input{
		Query:   extract.NormalizedQuery{Raw: "recommend 3 movies for tonight"},
		Results: someResults(),
	}

	spec := c.Compose(in)

	assert.Equal(t, 3, spec.Count)
	assert.Contains(t, spec.User, "Recommend exactly 3 titles")
}

func TestCompose_CountClamped(t *testing.T) {
	assert.Equal(t, MaxCount, requestedCount("give me 50 movies"))
	assert.Equal(t, DefaultCount, requestedCount("movies please"))
}

func TestCompose_CountInstructionOnlyForRecommendations(t *testing.T) {
	c := NewComposer()
	in := Input{
		Query:   extract.NormalizedQuery{Raw: "what is Heat about"},
		Results: someResults(),
	}

	spec := c.Compose(in)

	assert.Equal(t, TypeDetailed, spec.ResponseType)
	assert.NotContains(t, spec.User, "Recommend exactly")
}

func TestCompose_GeneralChatSkipsContextAndFunctions(t *testing.T) {
	c := NewComposer()
	in := Input{
		Query:   extract.NormalizedQuery{Raw: "hello"},
		Results: someResults(),
	}

	spec := c.Compose(in)

	assert.Equal(t, TypeGeneralChat, spec.ResponseType)
	assert.NotContains(t, spec.User, "Catalog context")
	assert.Empty(t, spec.Functions)
}

func TestCompose_EmptyResultsBranch(t *testing.T) {
	c := NewComposer()
	in := queryInput("movies about the lost city of Atlantis", datatypes.QueryFilters{})

	spec := c.Compose(in)

	assert.Equal(t, TypeMovieRec, spec.ResponseType)
	assert.NotContains(t, spec.User, "Catalog context")
	assert.Contains(t, spec.System, "Nothing in the catalog matched")
}

func TestCompose_FunctionsCanBeDisabled(t *testing.T) {
	c := &Composer{EnableFunctions: false}
	in := Input{
		Query:   extract.NormalizedQuery{Raw: "good war movies"},
		Results: someResults(),
	}

	spec := c.Compose(in)

	assert.Empty(t, spec.Functions)
}

func TestCompose_HistoryCarriedThrough(t *testing.T) {
	c := NewComposer()
	history := []datatypes.Message{
		{Role: "user", Text: "action movies"},
		{Role: "assistant", Text: "Try Heat."},
	}
	in := Input{
		Query:   extract.NormalizedQuery{Raw: "more movies like that"},
		History: history,
		Results: someResults(),
	}

	spec := c.Compose(in)

	require.Len(t, spec.History, 2)
	assert.Equal(t, "action movies", spec.History[0].Text)
}

func TestCompose_SummaryTruncation(t *testing.T) {
	c := NewComposer()
	long := strings.Repeat("a", 1000)
	in := Input{
		Query: extract.NormalizedQuery{Raw: "movies"},
		Results: []retrieval.RetrievedItem{
			{Item: datatypes.CatalogItem{Title: "Long", Year: 2020, Genres: []string{"Drama"}, Summary: long}},
		},
	}

	spec := c.Compose(in)

	assert.NotContains(t, spec.User, long)
	assert.Contains(t, spec.User, strings.Repeat("a", maxSummaryRunes)+"...")
}

func TestResponseTypes(t *testing.T) {
	types := ResponseTypes()
	assert.Len(t, types, 8)
	assert.Equal(t, TypeFollowUp, types[0])
	assert.Equal(t, TypeGeneralChat, types[len(types)-1])
}

func TestSources(t *testing.T) {
	got := Sources(someResults())
	require.Len(t, got, 2)
	assert.Equal(t, "Heat", got[0].Title)
	assert.Equal(t, []string{"Crime"}, got[0].Genre)
	assert.Equal(t, "Movie", got[0].Type)
	assert.Equal(t, 0.91, got[0].Score)
}
