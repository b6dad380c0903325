// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin HTTP handlers for the
// recommendation service. Handlers are closures over their
// dependencies so tests can inject fakes.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reelmind/reelmind/datatypes"
	"github.com/reelmind/reelmind/observability"
	"github.com/reelmind/reelmind/recommend"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("reelmind/handlers")

// Recommender is the orchestration dependency of the recommendation
// handler.
type Recommender interface {
	Recommend(ctx *gin.Context, req datatypes.RecommendationRequest) (*recommend.Result, error)
}

// coreAdapter adapts *recommend.Core to the Recommender interface,
// unwrapping the gin context.
type coreAdapter struct {
	core *recommend.Core
}

func (a coreAdapter) Recommend(c *gin.Context, req datatypes.RecommendationRequest) (*recommend.Result, error) {
	return a.core.Recommend(c.Request.Context(), req)
}

// NewRecommender wraps a Core for handler use.
func NewRecommender(core *recommend.Core) Recommender {
	return coreAdapter{core: core}
}

// observe increments the request counter when metrics are wired.
func observe(m *observability.PipelineMetrics, endpoint, status string) {
	if m != nil {
		m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
	}
}

// HandleRecommendation handles POST /recommendation.
//
// # Description
//
// Binds and validates the request body, runs the full pipeline, and
// returns the answer with its sources and the updated chat history.
// Pipeline degradation never produces an error status: fallback
// answers still return 200, marked by their response type.
//
// # Responses
//
//   - 200: RecommendationResponse
//   - 400: malformed body or validation failure
//   - 500: request context failure
func HandleRecommendation(rec Recommender, metrics *observability.PipelineMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "handlers.Recommendation")
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		var req datatypes.RecommendationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			observe(metrics, "recommendation", "400")
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error:  "invalid_request",
				Detail: "request body must be valid JSON",
			})
			return
		}
		if err := req.Validate(); err != nil {
			observe(metrics, "recommendation", "400")
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error:  "invalid_request",
				Detail: err.Error(),
			})
			return
		}
		span.SetAttributes(attribute.Bool("session.present", req.SessionID != ""))

		result, err := rec.Recommend(c, req)
		if err != nil {
			slog.Error("Recommendation pipeline aborted", "error", err)
			observe(metrics, "recommendation", "500")
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				Error: "internal_error",
			})
			return
		}

		observe(metrics, "recommendation", "200")
		c.JSON(http.StatusOK, datatypes.RecommendationResponse{
			Answer:         result.Answer,
			Sources:        result.Sources,
			ChatHistory:    result.ChatHistory,
			FunctionCalled: result.FunctionCalled,
			SessionID:      result.SessionID,
			ResponseType:   result.ResponseType,
			Filters:        result.Filters,
		})
	}
}
