// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package compose turns a normalized query, retrieval results and
// conversation history into the prompt for the completion call.
//
// Response type detection is a prioritized rule table: the first rule
// whose predicate matches wins, and general_chat is the fallthrough.
// Each type maps to a template that decides whether retrieval context
// and function schemas are included.
package compose

import (
	"github.com/reelmind/reelmind/datatypes"
	"github.com/reelmind/reelmind/extract"
	"github.com/reelmind/reelmind/llm"
	"github.com/reelmind/reelmind/retrieval"
)

// The template vocabulary. Detection priority lives in the rule table,
// not here.
const (
	TypeFollowUp    = "follow_up_reference"
	TypeSimilar     = "similar_content"
	TypeDetailed    = "detailed_info"
	TypeTrending    = "trending"
	TypeGenreFilter = "genre_filter"
	TypeTVRec       = "tv_show_recommendation"
	TypeMovieRec    = "movie_recommendation"
	TypeGeneralChat = "general_chat"
)

// TypeFallback marks answers produced by the static fallback path. It
// is a response marker only, never a template: detection cannot select
// it and Override ignores it.
const TypeFallback = "fallback"

// ResponseTypes lists the fixed template vocabulary in detection
// priority order. Served by GET /response-types.
func ResponseTypes() []string {
	return []string{
		TypeFollowUp,
		TypeSimilar,
		TypeDetailed,
		TypeTrending,
		TypeGenreFilter,
		TypeTVRec,
		TypeMovieRec,
		TypeGeneralChat,
	}
}

// Input is everything the composer looks at for one request.
//
// Override, when set to a known response type, skips auto-detection
// and forces that template.
type Input struct {
	Query    extract.NormalizedQuery
	Results  []retrieval.RetrievedItem
	History  []datatypes.Message
	Override string
}

// PromptSpec is the composed prompt handed to the completion call.
//
// Functions is non-empty only for types where a catalog lookup could
// improve the answer; the model may then answer with a function call
// instead of text.
type PromptSpec struct {
	System       string
	User         string
	History      []datatypes.Message
	Functions    []llm.FunctionDef
	ResponseType string
	Count        int
}
