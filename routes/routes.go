// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes wires the HTTP surface onto a gin engine.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/reelmind/reelmind/handlers"
	"github.com/reelmind/reelmind/observability"
)

// Dependencies holds everything the route table needs.
type Dependencies struct {
	Recommender handlers.Recommender
	Catalog     handlers.Catalog
	Memory      handlers.Memory
	Metrics     *observability.PipelineMetrics
}

// RequestID attaches a request ID to every request, honoring a
// caller-supplied X-Request-ID and generating one otherwise. The ID is
// echoed in the response header for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// SetupRoutes registers all endpoints on the engine.
//
// # Routes
//
//   - POST /recommendation: full pipeline
//   - GET  /film/:title: direct catalog lookup
//   - POST /filter-by-genre: non-semantic genre listing
//   - GET  /similar/:title: nearest-neighbor lookup
//   - GET  /trending/:category: recent popular titles
//   - GET  /session-history/:session_id: server-side memory
//   - POST /clear-memory: drop one or all sessions
//   - GET  /response-types: template vocabulary
//   - GET  /health, /metrics: operational endpoints
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	r.Use(RequestID())

	r.POST("/recommendation", handlers.HandleRecommendation(deps.Recommender, deps.Metrics))
	r.GET("/film/:title", handlers.HandleFilmDetails(deps.Catalog, deps.Metrics))
	r.POST("/filter-by-genre", handlers.HandleFilterByGenre(deps.Catalog, deps.Metrics))
	r.GET("/similar/:title", handlers.HandleSimilar(deps.Catalog, deps.Metrics))
	r.GET("/trending/:category", handlers.HandleTrending(deps.Catalog, deps.Metrics))
	r.GET("/session-history/:session_id", handlers.HandleSessionHistory(deps.Memory, deps.Metrics))
	r.POST("/clear-memory", handlers.HandleClearMemory(deps.Memory, deps.Metrics))
	r.GET("/response-types", handlers.HandleResponseTypes(deps.Metrics))

	r.GET("/health", handlers.HandleHealth())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
