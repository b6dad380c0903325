// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/reelmind/reelmind/compose"
	"github.com/reelmind/reelmind/datatypes"
	"github.com/reelmind/reelmind/observability"
	"github.com/reelmind/reelmind/retrieval"
)

// Catalog is the direct-lookup dependency of the catalog handlers.
// *retrieval.Retriever satisfies it.
type Catalog interface {
	FilmDetails(ctx context.Context, title string) (*datatypes.CatalogItem, error)
	SearchByFilters(ctx context.Context, f datatypes.QueryFilters, limit int) ([]datatypes.CatalogItem, error)
	Similar(ctx context.Context, title string, limit int) ([]retrieval.RetrievedItem, error)
	Trending(ctx context.Context, category string, limit int) ([]datatypes.CatalogItem, error)
}

// HandleFilmDetails handles GET /film/:title.
//
// # Responses
//
//   - 200: FilmDetailsResponse
//   - 404: title not in the catalog
//   - 502: index unavailable
func HandleFilmDetails(catalog Catalog, metrics *observability.PipelineMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		title := c.Param("title")
		item, err := catalog.FilmDetails(c.Request.Context(), title)
		if err != nil {
			if errors.Is(err, retrieval.ErrNotFound) {
				observe(metrics, "film", "404")
				c.JSON(http.StatusNotFound, datatypes.ErrorResponse{
					Error:  "not_found",
					Detail: "no catalog item with that title",
				})
				return
			}
			slog.Error("Film details lookup failed", "error", err)
			observe(metrics, "film", "502")
			c.JSON(http.StatusBadGateway, datatypes.ErrorResponse{Error: "index_unavailable"})
			return
		}

		observe(metrics, "film", "200")
		c.JSON(http.StatusOK, datatypes.FilmDetailsResponse{Film: *item})
	}
}

// HandleFilterByGenre handles POST /filter-by-genre.
//
// # Responses
//
//   - 200: FilmListResponse, newest first
//   - 400: malformed body, or no recognized genre
//   - 502: index unavailable
func HandleFilterByGenre(catalog Catalog, metrics *observability.PipelineMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.FilterByGenreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			observe(metrics, "filter_by_genre", "400")
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error:  "invalid_request",
				Detail: "request body must be valid JSON",
			})
			return
		}
		if err := req.Validate(); err != nil {
			observe(metrics, "filter_by_genre", "400")
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error:  "invalid_request",
				Detail: err.Error(),
			})
			return
		}

		f := datatypes.QueryFilters{Genres: req.Genres, YearMin: req.MinYear}
		f.Normalize()
		if len(f.Genres) == 0 {
			observe(metrics, "filter_by_genre", "400")
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error:  "invalid_request",
				Detail: "no recognized genres in request",
			})
			return
		}

		films, err := catalog.SearchByFilters(c.Request.Context(), f, req.Limit)
		if err != nil {
			slog.Error("Genre filter search failed", "error", err)
			observe(metrics, "filter_by_genre", "502")
			c.JSON(http.StatusBadGateway, datatypes.ErrorResponse{Error: "index_unavailable"})
			return
		}

		observe(metrics, "filter_by_genre", "200")
		c.JSON(http.StatusOK, datatypes.FilmListResponse{Films: films, Count: len(films)})
	}
}

// HandleSimilar handles GET /similar/:title. The optional num_results
// query parameter caps the result count.
//
// # Responses
//
//   - 200: SimilarResponse
//   - 404: reference title not in the catalog
//   - 502: index unavailable
func HandleSimilar(catalog Catalog, metrics *observability.PipelineMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		title := c.Param("title")
		numResults, _ := strconv.Atoi(c.DefaultQuery("num_results", "0"))

		items, err := catalog.Similar(c.Request.Context(), title, numResults)
		if err != nil {
			if errors.Is(err, retrieval.ErrNotFound) {
				observe(metrics, "similar", "404")
				c.JSON(http.StatusNotFound, datatypes.ErrorResponse{
					Error:  "not_found",
					Detail: "no catalog item with that title",
				})
				return
			}
			slog.Error("Similarity search failed", "error", err)
			observe(metrics, "similar", "502")
			c.JSON(http.StatusBadGateway, datatypes.ErrorResponse{Error: "index_unavailable"})
			return
		}

		observe(metrics, "similar", "200")
		c.JSON(http.StatusOK, datatypes.SimilarResponse{
			Reference: title,
			Similar:   compose.Sources(items),
		})
	}
}

// HandleTrending handles GET /trending/:category.
//
// # Responses
//
//   - 200: FilmListResponse, newest first
//   - 404: unknown category
//   - 502: index unavailable
func HandleTrending(catalog Catalog, metrics *observability.PipelineMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := c.Param("category")
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

		films, err := catalog.Trending(c.Request.Context(), category, limit)
		if err != nil {
			if errors.Is(err, retrieval.ErrNotFound) {
				observe(metrics, "trending", "404")
				c.JSON(http.StatusNotFound, datatypes.ErrorResponse{
					Error:  "not_found",
					Detail: "unknown trending category",
				})
				return
			}
			slog.Error("Trending lookup failed", "error", err)
			observe(metrics, "trending", "502")
			c.JSON(http.StatusBadGateway, datatypes.ErrorResponse{Error: "index_unavailable"})
			return
		}

		observe(metrics, "trending", "200")
		c.JSON(http.StatusOK, datatypes.FilmListResponse{Films: films, Count: len(films)})
	}
}
