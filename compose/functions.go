// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compose

import "github.com/reelmind/reelmind/llm"

// Function names the model may call. The orchestration core dispatches
// on these in a switch.
const (
	FnGetFilmDetails = "get_film_details"
	FnFilterByGenre  = "filter_by_genre"
	FnGetSimilar     = "get_similar_titles"
	FnGetTrending    = "get_trending_recommendations"
)

// catalogFunctions are the schemas advertised to the model when
// function calling is enabled for the detected response type.
var catalogFunctions = []llm.FunctionDef{
	{
		Name:        FnGetFilmDetails,
		Description: "Look up full details for one movie or TV show by its exact title.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Exact title of the movie or TV show.",
				},
			},
			"required": []string{"title"},
		},
	},
	{
		Name:        FnFilterByGenre,
		Description: "List catalog titles matching one or more genres, newest first.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"genres": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Genre names to match.",
				},
				"min_year": map[string]any{
					"type":        "integer",
					"description": "Only include titles released in or after this year.",
				},
			},
			"required": []string{"genres"},
		},
	},
	{
		Name:        FnGetSimilar,
		Description: "Find titles most similar to a reference movie or TV show.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Reference title to find similar content for.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "How many similar titles to return.",
				},
			},
			"required": []string{"title"},
		},
	},
	{
		Name:        FnGetTrending,
		Description: "Get recent popular titles for a category such as movies, tv, or a genre.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"category": map[string]any{
					"type":        "string",
					"description": "Category: movies, tv, all, or a genre name.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "How many titles to return.",
				},
			},
			"required": []string{"category"},
		},
	},
}

// CatalogFunctions returns the advertised function schemas.
func CatalogFunctions() []llm.FunctionDef {
	out := make([]llm.FunctionDef, len(catalogFunctions))
	copy(out, catalogFunctions)
	return out
}
