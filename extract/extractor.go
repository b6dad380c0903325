// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extract turns a raw user query into a normalized query: a
// rewritten summary suitable for embedding plus structured filters.
//
// The primary path asks the language model for a strict JSON rewrite.
// When the model call fails, times out, or returns unparseable output,
// a deterministic regex fallback produces filters from the raw text.
// Extraction never fails the request.
package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/reelmind/reelmind/datatypes"
	"github.com/reelmind/reelmind/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("reelmind/extract")

// extractionMaxTokens bounds the rewrite completion. The JSON object
// is small; a truncated response fails parsing and takes the regex
// fallback like any other malformed output.
const extractionMaxTokens = 400

// NormalizedQuery is the extraction result. Summary is the text that
// gets embedded for retrieval; Filters carry the structured
// constraints. Fallback marks results produced by the regex path.
type NormalizedQuery struct {
	Raw      string
	Summary  string
	Filters  datatypes.QueryFilters
	Fallback bool
}

// extractionPrompt instructs the model to emit strict JSON. The
// examples cover the Vietnamese and English phrasings the service
// sees in production.
const extractionPrompt = `You are a query analyzer for a movie and TV show recommendation system.
Rewrite the user's query as a short English search summary and extract structured filters.

Respond with ONLY a JSON object, no prose, in exactly this shape:
{"summary": "<concise English rewrite of what the user wants>",
 "genres": ["<genre>", ...],
 "year": <exact release year or 0>,
 "year_min": <minimum release year or 0>,
 "content_type": "<Movie, TV Show, or empty>",
 "country": "<country of origin or empty>"}

Rules:
- Translate Vietnamese queries into English in the summary.
- Only use genres from this list: %GENRES%.
- "phim lẻ" means Movie, "phim bộ" means TV Show.
- "recent", "new", "gần đây", "mới" imply year_min of the last three years.
- Omit filters the user did not ask for (empty list, 0, or empty string).

Examples:
Query: "phim hành động Mỹ năm 2020"
{"summary": "American action movies from 2020", "genres": ["Action"], "year": 2020, "year_min": 0, "content_type": "", "country": "United States"}
Query: "something funny to watch with my family"
{"summary": "funny family-friendly movies", "genres": ["Comedy", "Family"], "year": 0, "year_min": 0, "content_type": "", "country": ""}`

// Extractor produces NormalizedQuery values from raw user queries.
type Extractor struct {
	llm     llm.Client
	timeout time.Duration
}

// NewExtractor builds an Extractor. A zero timeout disables the
// per-call deadline.
func NewExtractor(client llm.Client, timeout time.Duration) *Extractor {
	return &Extractor{llm: client, timeout: timeout}
}

// Extract normalizes a raw query.
//
// # Description
//
// Attempts the LLM JSON rewrite first. Any failure along that path
// (transport error, deadline, malformed JSON) falls back to regex
// extraction over the raw text, with the raw query itself as the
// embedding summary. Extract never returns an error.
//
// # Inputs
//
//   - ctx: caller context; the LLM call gets a derived deadline.
//   - raw: the user query as received.
//
// # Outputs
//
//   - NormalizedQuery: always usable, possibly with empty filters.
func (e *Extractor) Extract(ctx context.Context, raw string) NormalizedQuery {
	ctx, span := tracer.Start(ctx, "extract.Extract")
	defer span.End()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	prompt := strings.Replace(extractionPrompt, "%GENRES%",
		strings.Join(datatypes.KnownGenres(), ", "), 1)

	temp := float32(0.0)
	maxTokens := extractionMaxTokens
	result, err := e.llm.Chat(ctx, llm.ChatRequest{
		System: prompt,
		User:   raw,
		Params: llm.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens},
	})
	if err != nil {
		slog.Warn("LLM extraction failed, using regex fallback", "error", err)
		span.SetAttributes(attribute.Bool("extract.fallback", true))
		return fallbackExtract(raw)
	}

	nq, ok := parseExtraction(raw, result.Text)
	if !ok {
		slog.Warn("LLM extraction returned unparseable output, using regex fallback")
		span.SetAttributes(attribute.Bool("extract.fallback", true))
		return fallbackExtract(raw)
	}
	span.SetAttributes(
		attribute.Bool("extract.fallback", false),
		attribute.Int("extract.genres", len(nq.Filters.Genres)),
	)
	return nq
}

// extractionPayload mirrors the JSON shape requested from the model.
type extractionPayload struct {
	Summary     string   `json:"summary"`
	Genres      []string `json:"genres"`
	Year        int      `json:"year"`
	YearMin     int      `json:"year_min"`
	ContentType string   `json:"content_type"`
	Country     string   `json:"country"`
}

// parseExtraction decodes the model output into a NormalizedQuery.
// Models sometimes wrap the JSON in prose or code fences, so the
// object is located by brace positions before decoding.
func parseExtraction(raw, text string) (NormalizedQuery, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return NormalizedQuery{}, false
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return NormalizedQuery{}, false
	}

	summary := strings.TrimSpace(payload.Summary)
	if summary == "" {
		summary = raw
	}
	nq := NormalizedQuery{
		Raw:     raw,
		Summary: summary,
		Filters: datatypes.QueryFilters{
			Genres:      payload.Genres,
			Year:        payload.Year,
			YearMin:     payload.YearMin,
			ContentType: payload.ContentType,
			Country:     payload.Country,
		},
	}
	nq.Filters.Normalize()
	return nq, true
}
