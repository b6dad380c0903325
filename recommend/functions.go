// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/reelmind/reelmind/compose"
	"github.com/reelmind/reelmind/datatypes"
	"github.com/reelmind/reelmind/llm"
)

// Typed argument shapes for each advertised function. The model's
// Arguments JSON is decoded into exactly one of these.
type (
	filmDetailsArgs struct {
		Title string `json:"title"`
	}
	filterByGenreArgs struct {
		Genres  []string `json:"genres"`
		MinYear int      `json:"min_year"`
	}
	similarArgs struct {
		Title string `json:"title"`
		Limit int    `json:"limit"`
	}
	trendingArgs struct {
		Category string `json:"category"`
		Limit    int    `json:"limit"`
	}
)

// completeWithFunction dispatches one model function call against the
// catalog and feeds the structured result into a second completion.
// The second call advertises no functions, so the exchange is bounded
// at one call per request. Any dispatch failure degrades to a plain
// completion without the lookup result.
func (c *Core) completeWithFunction(ctx context.Context, spec compose.PromptSpec, call llm.FunctionCall) (string, bool) {
	slog.Info("Dispatching model function call", "function", call.Name)
	if c.metrics != nil {
		c.metrics.FunctionCallsTotal.WithLabelValues(call.Name).Inc()
	}

	payload, err := c.dispatch(ctx, call)
	if err != nil {
		slog.Warn("Function dispatch failed, answering without lookup", "function", call.Name, "error", err)
		payload = fmt.Sprintf(`{"error": "lookup failed for %s"}`, call.Name)
	}

	user := spec.User + "\n\nLookup result from " + call.Name + ":\n" + payload +
		"\n\nAnswer the user's request using this lookup result. If it contains an error, say the information is unavailable."

	result, err := c.chatWithRetry(ctx, llm.ChatRequest{
		System:  spec.System,
		User:    user,
		History: spec.History,
	})
	if err != nil {
		slog.Error("Completion after function call failed, serving fallback", "error", err)
		if c.metrics != nil {
			c.metrics.CompletionFallbacksTotal.Inc()
		}
		return FallbackAnswer, true
	}
	if result.FunctionCall != nil {
		// No functions were advertised; treat a call anyway as a
		// malformed answer.
		slog.Warn("Model attempted a second function call, serving fallback")
		if c.metrics != nil {
			c.metrics.CompletionFallbacksTotal.Inc()
		}
		return FallbackAnswer, true
	}
	return result.Text, false
}

// dispatch runs one function call against the catalog and returns the
// result as a JSON payload for the follow-up prompt.
func (c *Core) dispatch(ctx context.Context, call llm.FunctionCall) (string, error) {
	switch call.Name {
	case compose.FnGetFilmDetails:
		var args filmDetailsArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return "", fmt.Errorf("bad %s arguments: %w", call.Name, err)
		}
		item, err := c.searcher.FilmDetails(ctx, args.Title)
		if err != nil {
			return "", err
		}
		return marshalPayload(item)

	case compose.FnFilterByGenre:
		var args filterByGenreArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return "", fmt.Errorf("bad %s arguments: %w", call.Name, err)
		}
		f := datatypes.QueryFilters{Genres: args.Genres, YearMin: args.MinYear}
		f.Normalize()
		items, err := c.searcher.SearchByFilters(ctx, f, 0)
		if err != nil {
			return "", err
		}
		return marshalPayload(items)

	case compose.FnGetSimilar:
		var args similarArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return "", fmt.Errorf("bad %s arguments: %w", call.Name, err)
		}
		items, err := c.searcher.Similar(ctx, args.Title, args.Limit)
		if err != nil {
			return "", err
		}
		return marshalPayload(items)

	case compose.FnGetTrending:
		var args trendingArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return "", fmt.Errorf("bad %s arguments: %w", call.Name, err)
		}
		items, err := c.searcher.Trending(ctx, args.Category, args.Limit)
		if err != nil {
			return "", err
		}
		return marshalPayload(items)

	default:
		return "", fmt.Errorf("unknown function %q", call.Name)
	}
}

func marshalPayload(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal lookup result: %w", err)
	}
	return string(b), nil
}
