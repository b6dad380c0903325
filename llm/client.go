// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm defines the language model abstraction used by the
// recommendation pipeline and its OpenAI-compatible implementation.
package llm

import (
	"context"

	"github.com/reelmind/reelmind/datatypes"
)

// GenerationParams holds optional generation parameters. Nil pointer
// fields mean "use the backend default".
type GenerationParams struct {
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
	Stop        []string
}

// FunctionDef describes one callable function advertised to the model.
// Parameters is a JSON Schema object.
type FunctionDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// FunctionCall is the model's request to invoke an advertised function.
// Arguments is the raw JSON argument object as returned by the model.
type FunctionCall struct {
	Name      string
	Arguments string
}

// ChatRequest is one chat completion call.
//
// History carries prior conversational turns in chronological order.
// Functions, when non-empty, are advertised to the model as callable
// tools; the model may then answer with a FunctionCall instead of text.
type ChatRequest struct {
	System    string
	User      string
	History   []datatypes.Message
	Functions []FunctionDef
	Params    GenerationParams
}

// ChatResult is the outcome of a chat completion call. Exactly one of
// Text or FunctionCall is meaningful: when the model chose to call a
// function, FunctionCall is non-nil and Text is empty.
type ChatResult struct {
	Text         string
	FunctionCall *FunctionCall
}

// Client is the interface for chat completion backends.
//
// # Description
//
// Client abstracts the language model so the pipeline can be tested
// against fakes and so the backend can be swapped between OpenAI and
// OpenAI-compatible local servers without touching callers.
type Client interface {
	// Chat performs one chat completion. Blocking; honors ctx
	// cancellation and deadline.
	Chat(ctx context.Context, req ChatRequest) (*ChatResult, error)
}

// Embedder is the interface for text embedding backends.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
}
