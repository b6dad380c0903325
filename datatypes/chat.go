// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures shared across the
// recommendation service.
//
// This file contains request and response types for the HTTP surface.
// For the catalog item model and filter vocabulary, see catalog.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxQueryBytes is the maximum size of a single user query. Byte
	// length is checked, not rune count, so oversized multi-byte
	// payloads are rejected too.
	MaxQueryBytes = 8 * 1024 // 8KB

	// MaxHistoryMessages is the maximum number of caller-supplied
	// history messages accepted in one request.
	MaxHistoryMessages = 50

	// MaxSessionMessages is the number of messages retained per
	// session in server-side memory. Older messages are evicted in
	// FIFO order once the cap is reached.
	MaxSessionMessages = 10
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// reelValidate is the validator instance for request datatypes.
// Initialized in init() with custom validators.
var reelValidate *validator.Validate

func init() {
	reelValidate = validator.New()
	_ = reelValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks that a string field does not exceed
// MaxQueryBytes.
//
// # Inputs
//
//   - fl: Validator field level containing the string to validate
//
// # Outputs
//
//   - bool: true if the content is at most MaxQueryBytes bytes
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxQueryBytes
}

// =============================================================================
// Conversation Types
// =============================================================================

// Message is one conversational turn. Role is "user" or "assistant".
type Message struct {
	Role      string    `json:"role" validate:"required,oneof=user assistant"`
	Text      string    `json:"text" validate:"required,maxbytes"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// =============================================================================
// Recommendation Request and Response
// =============================================================================

// RecommendationRequest represents the body of POST /recommendation.
//
// # Description
//
// RecommendationRequest carries the raw user query plus optional
// session identity and caller-supplied history. When ChatHistory is
// non-empty it is treated as the authoritative conversation context
// for this request and server-side session memory is not consulted,
// though the new turn is still persisted for the session.
//
// # Fields
//
//   - Query: Required. The raw user query, at most MaxQueryBytes.
//   - SessionID: Optional. Conversations without a session ID are
//     answered statelessly and never persisted.
//   - ChatHistory: Optional. Caller-supplied prior turns, newest last.
//   - UseFunctions: Optional. Nil defaults to true; false suppresses
//     function schema advertisement for this request.
//   - UseTemplate: Optional. Nil defaults to true; false skips response
//     type detection and prompts as general chat.
//   - ResponseType: Optional. Names a template to force, bypassing
//     detection. Unknown values are ignored.
//
// # Validation
//
// Uses go-playground/validator:
//   - Query: required, max 8192 bytes
//   - ChatHistory: at most MaxHistoryMessages elements, each element
//     validated (role whitelist, text size)
type RecommendationRequest struct {
	Query        string    `json:"query" validate:"required,maxbytes"`
	SessionID    string    `json:"session_id"`
	ChatHistory  []Message `json:"chat_history" validate:"omitempty,max=50,dive"`
	UseFunctions *bool     `json:"use_functions"`
	UseTemplate  *bool     `json:"use_template"`
	ResponseType string    `json:"response_type"`
}

// Validate validates the RecommendationRequest fields. Call after
// binding the JSON request.
func (r *RecommendationRequest) Validate() error {
	return reelValidate.Struct(r)
}

// RecommendationResponse is the body returned by POST /recommendation.
//
// Answer is always populated. When the pipeline degrades (retrieval
// empty, completion fallback) the response still carries HTTP 200 with
// a usable Answer; fallback answers report ResponseType "fallback".
// ChatHistory is the conversation including this request's turn, so a
// stateless caller can echo it back on the next request.
type RecommendationResponse struct {
	Answer         string       `json:"answer"`
	Sources        []SourceInfo `json:"sources"`
	ChatHistory    []Message    `json:"chat_history"`
	FunctionCalled string       `json:"function_called,omitempty"`
	SessionID      string       `json:"session_id,omitempty"`
	ResponseType   string       `json:"response_type"`
	Filters        QueryFilters `json:"filters_extracted"`
}

// =============================================================================
// Catalog Endpoint Types
// =============================================================================

// FilterByGenreRequest represents the body of POST /filter-by-genre.
type FilterByGenreRequest struct {
	Genres  []string `json:"genres" validate:"required,min=1,max=5"`
	MinYear int      `json:"min_year" validate:"omitempty,gte=1900,lte=2100"`
	Limit   int      `json:"limit" validate:"omitempty,gte=1,lte=50"`
}

// Validate validates the FilterByGenreRequest fields.
func (r *FilterByGenreRequest) Validate() error {
	return reelValidate.Struct(r)
}

// FilmDetailsResponse is the body returned by GET /film/{title}.
type FilmDetailsResponse struct {
	Film CatalogItem `json:"film"`
}

// FilmListResponse is the body returned by the list-shaped catalog
// endpoints (filter-by-genre, trending).
type FilmListResponse struct {
	Films []CatalogItem `json:"films"`
	Count int           `json:"count"`
}

// SimilarResponse is the body returned by GET /similar/{title}.
type SimilarResponse struct {
	Reference string       `json:"reference"`
	Similar   []SourceInfo `json:"similar"`
}

// =============================================================================
// Memory Endpoint Types
// =============================================================================

// SessionHistoryResponse is the body returned by
// GET /session-history/{session_id}.
type SessionHistoryResponse struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	Count     int       `json:"count"`
}

// ClearMemoryRequest represents the body of POST /clear-memory. With an
// empty SessionID, memory for all sessions is cleared.
type ClearMemoryRequest struct {
	SessionID string `json:"session_id"`
}

// ClearMemoryResponse acknowledges a clear-memory call.
type ClearMemoryResponse struct {
	Status          string `json:"status"`
	SessionsCleared int    `json:"sessions_cleared"`
}

// =============================================================================
// Error Envelope
// =============================================================================

// ErrorResponse is the uniform error body for 4xx and 5xx responses.
// Detail never carries internal error text from upstream services.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
