// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package recommend is the orchestration core: it runs one request
// through extraction, retrieval, composition and completion, persists
// the conversational turn, and guarantees that every request gets a
// usable answer.
//
// The pipeline is a linear state machine. Extraction and retrieval
// degrade internally and never fail a request; the completion call is
// retried once and then replaced by a static fallback answer, still
// returned with success to the client.
package recommend

import (
	"context"
	"log/slog"
	"time"

	"github.com/reelmind/reelmind/compose"
	"github.com/reelmind/reelmind/datatypes"
	"github.com/reelmind/reelmind/extract"
	"github.com/reelmind/reelmind/llm"
	"github.com/reelmind/reelmind/memory"
	"github.com/reelmind/reelmind/observability"
	"github.com/reelmind/reelmind/retrieval"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("reelmind/recommend")

// Pipeline stages, in order. Used for logging and metrics labels.
const (
	stageReceived  = "received"
	stageFiltered  = "filtered"
	stageRetrieved = "retrieved"
	stageComposed  = "composed"
	stageCompleted = "completed"
)

// FallbackAnswer is returned when the completion call fails twice.
// The request still succeeds from the client's point of view.
const FallbackAnswer = "I'm having trouble putting an answer together right now. " +
	"Please try again in a moment, or ask me for recommendations by genre, " +
	"year, or country."

// Extractor is the query normalization dependency.
type Extractor interface {
	Extract(ctx context.Context, raw string) extract.NormalizedQuery
}

// Searcher is the retrieval dependency. Search degrades to an empty
// result internally; the remaining methods surface errors because they
// back the direct catalog endpoints.
type Searcher interface {
	Search(ctx context.Context, nq extract.NormalizedQuery, limit int) []retrieval.RetrievedItem
	SearchByFilters(ctx context.Context, f datatypes.QueryFilters, limit int) ([]datatypes.CatalogItem, error)
	FilmDetails(ctx context.Context, title string) (*datatypes.CatalogItem, error)
	Similar(ctx context.Context, title string, limit int) ([]retrieval.RetrievedItem, error)
	Trending(ctx context.Context, category string, limit int) ([]datatypes.CatalogItem, error)
}

// Composer is the prompt composition dependency.
type Composer interface {
	Compose(in compose.Input) compose.PromptSpec
}

// CoreConfig holds the orchestration tunables.
type CoreConfig struct {
	// CompletionTimeout bounds each completion attempt.
	CompletionTimeout time.Duration

	// RetryBackoff is the fixed wait before the second completion
	// attempt.
	RetryBackoff time.Duration

	// HistoryLimit caps how many prior messages reach the prompt.
	HistoryLimit int
}

// DefaultCoreConfig returns the production configuration.
func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		CompletionTimeout: 30 * time.Second,
		RetryBackoff:      500 * time.Millisecond,
		HistoryLimit:      datatypes.MaxSessionMessages,
	}
}

// Core wires the pipeline stages together.
type Core struct {
	extractor Extractor
	searcher  Searcher
	composer  Composer
	store     *memory.Store
	llm       llm.Client
	metrics   *observability.PipelineMetrics
	cfg       CoreConfig
}

// NewCore builds a Core. metrics may be nil, for tests.
func NewCore(
	extractor Extractor,
	searcher Searcher,
	composer Composer,
	store *memory.Store,
	client llm.Client,
	metrics *observability.PipelineMetrics,
	cfg CoreConfig,
) *Core {
	def := DefaultCoreConfig()
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = def.CompletionTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	return &Core{
		extractor: extractor,
		searcher:  searcher,
		composer:  composer,
		store:     store,
		llm:       client,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// Result is the pipeline output for one request. ChatHistory is the
// conversation including this request's turn. Fallback answers report
// ResponseType compose.TypeFallback.
type Result struct {
	Answer         string
	Sources        []datatypes.SourceInfo
	ChatHistory    []datatypes.Message
	FunctionCalled string
	SessionID      string
	ResponseType   string
	Filters        datatypes.QueryFilters
	Fallback       bool
}

// Recommend runs the full pipeline for one validated request.
//
// # Description
//
// The stages run in a fixed order. Caller-supplied chat history, when
// present, is authoritative for prompt context; server-side memory is
// only read when the caller sent none. Requests without a session ID
// are answered statelessly and never persisted. Recommend never
// returns an error for pipeline degradation; the error return is
// reserved for context cancellation.
func (c *Core) Recommend(ctx context.Context, req datatypes.RecommendationRequest) (*Result, error) {
	ctx, span := tracer.Start(ctx, "recommend.Recommend")
	defer span.End()
	span.SetAttributes(attribute.Bool("session.present", req.SessionID != ""))

	slog.Debug("Pipeline stage", "stage", stageReceived, "session_id", req.SessionID)

	history := req.ChatHistory
	if len(history) == 0 && req.SessionID != "" {
		history = c.store.History(req.SessionID)
	}
	if len(history) > c.cfg.HistoryLimit {
		history = history[len(history)-c.cfg.HistoryLimit:]
	}

	nq := timedStage(c, stageFiltered, func() extract.NormalizedQuery {
		return c.extractor.Extract(ctx, req.Query)
	})
	if nq.Fallback && c.metrics != nil {
		c.metrics.ExtractionFallbacksTotal.Inc()
	}

	results := timedStage(c, stageRetrieved, func() []retrieval.RetrievedItem {
		return c.searcher.Search(ctx, nq, 0)
	})
	if c.metrics != nil {
		c.metrics.RetrievalResults.Observe(float64(len(results)))
	}
	span.SetAttributes(attribute.Int("retrieval.count", len(results)))

	override := req.ResponseType
	if req.UseTemplate != nil && !*req.UseTemplate {
		override = compose.TypeGeneralChat
	}

	spec := timedStage(c, stageComposed, func() compose.PromptSpec {
		return c.composer.Compose(compose.Input{
			Query:    nq,
			Results:  results,
			History:  history,
			Override: override,
		})
	})
	if req.UseFunctions != nil && !*req.UseFunctions {
		spec.Functions = nil
	}
	span.SetAttributes(attribute.String("response.type", spec.ResponseType))

	answer, functionCalled, fallback := c.complete(ctx, spec)
	slog.Debug("Pipeline stage", "stage", stageCompleted, "fallback", fallback)

	if req.SessionID != "" {
		c.store.AppendTurn(req.SessionID,
			datatypes.Message{Role: "user", Text: req.Query},
			datatypes.Message{Role: "assistant", Text: answer},
		)
		if c.metrics != nil {
			c.metrics.ActiveSessions.Set(float64(c.store.Len()))
		}
	}

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request context cancelled")
		return nil, err
	}

	responseType := spec.ResponseType
	if fallback {
		responseType = compose.TypeFallback
	}

	chatHistory := make([]datatypes.Message, 0, len(history)+2)
	chatHistory = append(chatHistory, history...)
	chatHistory = append(chatHistory,
		datatypes.Message{Role: "user", Text: req.Query},
		datatypes.Message{Role: "assistant", Text: answer},
	)

	return &Result{
		Answer:         answer,
		Sources:        compose.Sources(results),
		ChatHistory:    chatHistory,
		FunctionCalled: functionCalled,
		SessionID:      req.SessionID,
		ResponseType:   responseType,
		Filters:        nq.Filters,
		Fallback:       fallback,
	}, nil
}

// timedStage runs fn and records its latency under the stage label.
func timedStage[T any](c *Core, stage string, fn func() T) T {
	start := time.Now()
	out := fn()
	if c.metrics != nil {
		c.metrics.StageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
	slog.Debug("Pipeline stage", "stage", stage, "duration_ms", time.Since(start).Milliseconds())
	return out
}

// complete runs the completion with retry-once semantics, dispatching
// one model function call when the model asks for it. Both attempts
// failing yields the static fallback answer.
func (c *Core) complete(ctx context.Context, spec compose.PromptSpec) (answer, functionCalled string, fallback bool) {
	result, err := c.chatWithRetry(ctx, llm.ChatRequest{
		System:    spec.System,
		User:      spec.User,
		History:   spec.History,
		Functions: spec.Functions,
	})
	if err != nil {
		slog.Error("Completion failed after retry, serving fallback", "error", err)
		if c.metrics != nil {
			c.metrics.CompletionFallbacksTotal.Inc()
		}
		return FallbackAnswer, "", true
	}

	if result.FunctionCall == nil {
		return result.Text, "", false
	}
	answer, fallback = c.completeWithFunction(ctx, spec, *result.FunctionCall)
	return answer, result.FunctionCall.Name, fallback
}

// chatWithRetry tries one completion and retries once after a fixed
// backoff.
func (c *Core) chatWithRetry(ctx context.Context, req llm.ChatRequest) (*llm.ChatResult, error) {
	attempt := func() (*llm.ChatResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CompletionTimeout)
		defer cancel()
		return c.llm.Chat(callCtx, req)
	}

	result, err := attempt()
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	slog.Warn("Completion attempt failed, retrying once",
		"error", err, "backoff", c.cfg.RetryBackoff)
	if c.metrics != nil {
		c.metrics.CompletionRetriesTotal.Inc()
	}
	select {
	case <-time.After(c.cfg.RetryBackoff):
	case <-ctx.Done():
		return nil, err
	}
	return attempt()
}
