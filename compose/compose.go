// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compose

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/reelmind/reelmind/datatypes"
	"github.com/reelmind/reelmind/retrieval"
)

// DefaultCount is how many titles a recommendation answer carries when
// the user did not ask for a specific number.
const DefaultCount = 5

// MaxCount caps explicit user-requested counts.
const MaxCount = 10

// maxSummaryRunes truncates catalog summaries in the context block so
// one verbose item cannot crowd out the rest of the prompt.
const maxSummaryRunes = 300

// baseSystem is the persona shared by every template.
const baseSystem = "You are a friendly movie and TV show recommendation assistant. " +
	"You answer in the user's language, English or Vietnamese. " +
	"Only recommend titles from the provided catalog context; never invent titles."

// emptyResultsBranch is appended to the system text when a template
// wants catalog context but retrieval came back empty.
const emptyResultsBranch = " Nothing in the catalog matched the user's request. Say so " +
	"honestly, suggest loosening the constraint that is most likely too narrow, " +
	"and do not invent titles."

// template controls how one response type is prompted.
type template struct {
	system       string
	useContext   bool
	useFunctions bool
	useCount     bool
}

// templates maps each response type to its prompting behavior.
var templates = map[string]template{
	TypeFollowUp: {
		system: baseSystem + " The user is following up on titles already discussed in the " +
			"conversation. Use the conversation history to resolve which title they mean, " +
			"then answer using the catalog context.",
		useContext:   true,
		useFunctions: true,
	},
	TypeSimilar: {
		system: baseSystem + " The user wants titles similar to a reference they named. " +
			"Recommend catalog titles closest to the reference, and for each one give a " +
			"one-sentence reason for the resemblance. If the reference is not in the " +
			"context, call the similar-titles function rather than guessing.",
		useContext:   true,
		useFunctions: true,
	},
	TypeDetailed: {
		system: baseSystem + " The user is asking about one specific title. Answer their " +
			"question using the catalog context. If the title is not in the context, call " +
			"the lookup function rather than guessing.",
		useContext:   true,
		useFunctions: true,
	},
	TypeTrending: {
		system: baseSystem + " The user wants what is recent and popular. Prefer the newest " +
			"titles in the catalog context and say why each one is worth watching now. If " +
			"the context is thin, call the trending function.",
		useContext:   true,
		useFunctions: true,
	},
	TypeGenreFilter: {
		system: baseSystem + " The user wants titles in specific genres. List matching " +
			"titles from the catalog context, newest first, and name the genre match for " +
			"each. If the context is thin, call the genre filter function.",
		useContext:   true,
		useFunctions: true,
	},
	TypeTVRec: {
		system: baseSystem + " Recommend TV shows from the catalog context below. For each " +
			"one, give the title, year and a one-sentence reason it fits the request.",
		useContext:   true,
		useFunctions: true,
		useCount:     true,
	},
	TypeMovieRec: {
		system: baseSystem + " Recommend movies from the catalog context below. For each " +
			"one, give the title, year and a one-sentence reason it fits the request.",
		useContext:   true,
		useFunctions: true,
		useCount:     true,
	},
	TypeGeneralChat: {
		system: baseSystem + " The user is making small talk or asking something that is " +
			"not a concrete catalog request. Respond warmly and briefly, and steer the " +
			"conversation toward movie and TV show recommendations you can help with.",
	},
}

// detectRule pairs a response type with its predicate. Order in the
// rules slice is the detection priority.
type detectRule struct {
	name  string
	match func(in Input) bool
}

var (
	// Vietnamese alternatives sit outside the \b groups: Go's \b is
	// ASCII-only and never matches next to a diacritic character.
	followUpRe = regexp.MustCompile(`(?i)\b(the (first|second|third|last) one|tell me more|more about (it|that|them)|what about (it|that)|which one)\b|cái (đầu tiên|thứ hai|cuối)|phim đó|cái đó`)
	similarRe  = regexp.MustCompile(`(?i)\b(similar to|(movies?|films?|shows?|series|titles?|something|anything) like|in the same vein)\b|giống|tương tự`)
	detailsRe  = regexp.MustCompile(`(?i)\b(what is .+ about|who (directed|stars|is in)|plot of|cast of|details (about|of|on))\b|nội dung phim|ai đóng|đạo diễn`)
	trendingRe = regexp.MustCompile(`(?i)\b(trending|popular|what'?s hot|hot right now|everyone is watching)\b|thịnh hành|nổi tiếng|đang hot`)
	genreRe    = regexp.MustCompile(`(?i)\b(genres?|list|every|all the)\b|thể loại`)
	showRe     = regexp.MustCompile(`(?i)\b(tv shows?|tv series|series|shows?)\b|phim bộ|phim truyền hình`)
	movieRe    = regexp.MustCompile(`(?i)\b(movies?|films?|watch|recommend|suggest|cinema|documentar|anime)\b|phim|xem|đề xuất|gợi ý`)
	countRe    = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:movies?|films?|shows?|series|titles?|recommendations?|phim|bộ phim)\b`)
)

// rules is the prioritized detection table. First match wins;
// general_chat is the fallthrough and always matches.
var rules = []detectRule{
	{TypeFollowUp, func(in Input) bool {
		return len(in.History) > 0 && followUpRe.MatchString(in.Query.Raw)
	}},
	{TypeSimilar, func(in Input) bool {
		return similarRe.MatchString(in.Query.Raw)
	}},
	{TypeDetailed, func(in Input) bool {
		return detailsRe.MatchString(in.Query.Raw)
	}},
	{TypeTrending, func(in Input) bool {
		return trendingRe.MatchString(in.Query.Raw)
	}},
	{TypeGenreFilter, func(in Input) bool {
		return len(in.Query.Filters.Genres) > 0 && genreRe.MatchString(in.Query.Raw)
	}},
	{TypeTVRec, func(in Input) bool {
		return in.Query.Filters.ContentType == datatypes.ContentTypeTVShow ||
			showRe.MatchString(in.Query.Raw)
	}},
	{TypeMovieRec, func(in Input) bool {
		return !in.Query.Filters.Empty() || movieRe.MatchString(in.Query.Raw)
	}},
	{TypeGeneralChat, func(in Input) bool {
		return true
	}},
}

// Composer builds PromptSpecs. EnableFunctions switches function
// schema advertisement on for the types that support it.
type Composer struct {
	EnableFunctions bool
}

// NewComposer returns a Composer with function calling enabled.
func NewComposer() *Composer {
	return &Composer{EnableFunctions: true}
}

// Detect returns the response type for an input, walking the rule
// table in priority order. An Override naming a known type wins.
func Detect(in Input) string {
	if in.Override != "" {
		if _, ok := templates[in.Override]; ok {
			return in.Override
		}
	}
	for _, r := range rules {
		if r.match(in) {
			return r.name
		}
	}
	return TypeGeneralChat
}

// Compose builds the PromptSpec for one request.
//
// # Description
//
// Detects the response type (or honors the caller's override), selects
// its template, renders the catalog context block when the template
// uses it, and appends the count instruction for the recommendation
// templates. Templates that want context but got zero results switch
// to the nothing-matched branch. Compose is pure: no I/O, no
// randomness beyond its inputs.
func (c *Composer) Compose(in Input) PromptSpec {
	rt := Detect(in)
	tpl := templates[rt]

	spec := PromptSpec{
		System:       tpl.system,
		History:      in.History,
		ResponseType: rt,
		Count:        requestedCount(in.Query.Raw),
	}
	if tpl.useContext && len(in.Results) == 0 {
		spec.System = baseSystem + emptyResultsBranch
	}

	var sb strings.Builder
	if tpl.useContext && len(in.Results) > 0 {
		sb.WriteString("Catalog context:\n")
		for i, r := range in.Results {
			sb.WriteString(fmt.Sprintf("%d. %s (%d) [%s] %s, %s",
				i+1, r.Item.Title, r.Item.Year,
				strings.Join(r.Item.Genres, ", "),
				r.Item.ContentType, r.Item.Country))
			if r.Item.Rating != "" {
				sb.WriteString(", rated " + r.Item.Rating)
			}
			sb.WriteString("\n   " + truncate(r.Item.Summary, maxSummaryRunes) + "\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("User request: ")
	sb.WriteString(in.Query.Raw)
	if tpl.useCount && len(in.Results) > 0 {
		sb.WriteString(fmt.Sprintf("\n\nRecommend exactly %d titles from the catalog context.", spec.Count))
	}
	spec.User = sb.String()

	if c.EnableFunctions && tpl.useFunctions {
		spec.Functions = CatalogFunctions()
	}
	return spec
}

// requestedCount extracts an explicit count from the raw query,
// clamped to [1, MaxCount]. Defaults to DefaultCount.
func requestedCount(raw string) int {
	m := countRe.FindStringSubmatch(raw)
	if m == nil {
		return DefaultCount
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return DefaultCount
	}
	if n > MaxCount {
		return MaxCount
	}
	return n
}

// truncate shortens s to at most n runes, appending an ellipsis when
// cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// Sources projects retrieval results into the source list returned to
// API clients.
func Sources(results []retrieval.RetrievedItem) []datatypes.SourceInfo {
	out := make([]datatypes.SourceInfo, 0, len(results))
	for _, r := range results {
		out = append(out, datatypes.SourceInfo{
			Title:       r.Item.Title,
			Genre:       r.Item.Genres,
			Year:        r.Item.Year,
			Type:        r.Item.ContentType,
			Rating:      r.Item.Rating,
			Description: r.Item.Summary,
			Score:       r.Score,
		})
	}
	return out
}
