// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reelmind/reelmind/compose"
	"github.com/reelmind/reelmind/datatypes"
	"github.com/reelmind/reelmind/observability"
)

// Memory is the session-memory dependency of the memory handlers.
// *memory.Store satisfies it.
type Memory interface {
	History(sessionID string) []datatypes.Message
	Clear(sessionID string) bool
	ClearAll() int
	Len() int
}

// HandleSessionHistory handles GET /session-history/:session_id.
// Unknown sessions return an empty list, not an error.
func HandleSessionHistory(store Memory, metrics *observability.PipelineMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("session_id")
		messages := store.History(sessionID)

		observe(metrics, "session_history", "200")
		c.JSON(http.StatusOK, datatypes.SessionHistoryResponse{
			SessionID: sessionID,
			Messages:  messages,
			Count:     len(messages),
		})
	}
}

// HandleClearMemory handles POST /clear-memory. The session ID comes
// from the session_id query parameter, with a JSON body as fallback.
// With a session ID it clears that session; without one it clears
// everything. Clearing an unknown session succeeds with zero sessions
// cleared.
func HandleClearMemory(store Memory, metrics *observability.PipelineMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Query("session_id")
		if sessionID == "" && c.Request.ContentLength > 0 {
			var req datatypes.ClearMemoryRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				observe(metrics, "clear_memory", "400")
				c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
					Error:  "invalid_request",
					Detail: "request body must be valid JSON",
				})
				return
			}
			sessionID = req.SessionID
		}

		cleared := 0
		if sessionID == "" {
			cleared = store.ClearAll()
		} else if store.Clear(sessionID) {
			cleared = 1
		}

		// Set from the store, never arithmetic on the gauge: the
		// janitor may have evicted sessions since the last update.
		if metrics != nil {
			metrics.ActiveSessions.Set(float64(store.Len()))
		}
		observe(metrics, "clear_memory", "200")
		c.JSON(http.StatusOK, datatypes.ClearMemoryResponse{
			Status:          "ok",
			SessionsCleared: cleared,
		})
	}
}

// HandleResponseTypes handles GET /response-types.
func HandleResponseTypes(metrics *observability.PipelineMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		observe(metrics, "response_types", "200")
		c.JSON(http.StatusOK, gin.H{"response_types": compose.ResponseTypes()})
	}
}

// HandleHealth handles GET /health.
func HandleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
