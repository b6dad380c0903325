// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/reelmind/reelmind/datatypes"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// CatalogClass is the Weaviate class holding the indexed catalog.
const CatalogClass = "CatalogItem"

// catalogIDNamespace seeds the deterministic object IDs; titles are
// unique in the catalog, so re-upserting an item overwrites it instead
// of duplicating it.
var catalogIDNamespace = uuid.MustParse("7c9f54d2-30b1-4f4a-a6a9-8e21d3c5b0e4")

// catalogObjectID derives the stable Weaviate object ID for a title.
func catalogObjectID(title string) strfmt.UUID {
	id := uuid.NewSHA1(catalogIDNamespace, []byte(strings.ToLower(strings.TrimSpace(title))))
	return strfmt.UUID(id.String())
}

// WeaviateIndex implements Index on top of a Weaviate instance with
// externally supplied vectors (vectorizer "none").
type WeaviateIndex struct {
	client *weaviate.Client
}

// NewWeaviateIndex wraps an existing Weaviate client.
func NewWeaviateIndex(client *weaviate.Client) *WeaviateIndex {
	return &WeaviateIndex{client: client}
}

// EnsureSchema creates the CatalogItem class if it does not exist yet.
// Safe to call on every startup.
func (w *WeaviateIndex) EnsureSchema(ctx context.Context) error {
	exists, err := w.client.Schema().ClassExistenceChecker().
		WithClassName(CatalogClass).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check catalog schema: %w", err)
	}
	if exists {
		return nil
	}

	indexFilterable := new(bool)
	*indexFilterable = true

	class := &models.Class{
		Class:       CatalogClass,
		Description: "A movie or TV show with its embedded summary",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "title", DataType: []string{"text"}, Tokenization: "field", IndexFilterable: indexFilterable},
			{Name: "genres", DataType: []string{"text[]"}, Tokenization: "field", IndexFilterable: indexFilterable},
			{Name: "year", DataType: []string{"int"}, IndexFilterable: indexFilterable},
			{Name: "content_type", DataType: []string{"text"}, Tokenization: "field", IndexFilterable: indexFilterable},
			{Name: "country", DataType: []string{"text"}, Tokenization: "field", IndexFilterable: indexFilterable},
			{Name: "summary", DataType: []string{"text"}, Tokenization: "word"},
			{Name: "cast", DataType: []string{"text[]"}, Tokenization: "field"},
			{Name: "director", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "rating", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "duration", DataType: []string{"text"}, Tokenization: "field"},
		},
	}
	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}
	slog.Info("Created catalog schema", "class", CatalogClass)
	return nil
}

// catalogFields are the properties requested on every catalog query.
var catalogFields = []graphql.Field{
	{Name: "title"},
	{Name: "genres"},
	{Name: "year"},
	{Name: "content_type"},
	{Name: "country"},
	{Name: "summary"},
	{Name: "cast"},
	{Name: "director"},
	{Name: "rating"},
	{Name: "duration"},
}

// buildWhere translates QueryFilters into a Weaviate where filter.
// Returns nil when no constraint is set.
func buildWhere(f datatypes.QueryFilters) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder

	if len(f.Genres) > 0 {
		operands = append(operands, filters.Where().
			WithPath([]string{"genres"}).
			WithOperator(filters.ContainsAny).
			WithValueText(f.Genres...))
	}
	if f.Year != 0 {
		operands = append(operands, filters.Where().
			WithPath([]string{"year"}).
			WithOperator(filters.Equal).
			WithValueInt(int64(f.Year)))
	}
	if f.YearMin != 0 {
		operands = append(operands, filters.Where().
			WithPath([]string{"year"}).
			WithOperator(filters.GreaterThanEqual).
			WithValueInt(int64(f.YearMin)))
	}
	if f.ContentType != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"content_type"}).
			WithOperator(filters.Equal).
			WithValueString(f.ContentType))
	}
	if f.Country != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"country"}).
			WithOperator(filters.Equal).
			WithValueString(f.Country))
	}

	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().
			WithOperator(filters.And).
			WithOperands(operands)
	}
}

// parseGraphQLResponse parses a Weaviate GraphQL response into the
// target type by round-tripping the Data field through JSON.
func parseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("GraphQL query failed: %s", resp.Errors[0].Message)
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}
	return &result, nil
}

// catalogQueryResponse mirrors the Get shape of catalog queries.
type catalogQueryResponse struct {
	Get struct {
		CatalogItem []catalogResult `json:"CatalogItem"`
	} `json:"Get"`
}

// catalogResult is a single item as returned by GraphQL, with the
// _additional block carrying certainty and, when requested, the stored
// vector.
type catalogResult struct {
	Title       string   `json:"title"`
	Genres      []string `json:"genres"`
	Year        int      `json:"year"`
	ContentType string   `json:"content_type"`
	Country     string   `json:"country"`
	Summary     string   `json:"summary"`
	Cast        []string `json:"cast"`
	Director    string   `json:"director"`
	Rating      string   `json:"rating"`
	Duration    string   `json:"duration"`
	Additional  struct {
		Certainty float64   `json:"certainty"`
		Vector    []float32 `json:"vector"`
	} `json:"_additional"`
}

func (r catalogResult) toItem() datatypes.CatalogItem {
	return datatypes.CatalogItem{
		Title:       r.Title,
		Genres:      r.Genres,
		Year:        r.Year,
		ContentType: r.ContentType,
		Country:     r.Country,
		Summary:     r.Summary,
		Cast:        r.Cast,
		Director:    r.Director,
		Rating:      r.Rating,
		Duration:    r.Duration,
	}
}

// Query implements Index.
func (w *WeaviateIndex) Query(ctx context.Context, vector []float32, f datatypes.QueryFilters, limit int) ([]RetrievedItem, error) {
	nearVector := w.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	fields := append([]graphql.Field{}, catalogFields...)
	fields = append(fields, graphql.Field{
		Name:   "_additional",
		Fields: []graphql.Field{{Name: "certainty"}},
	})

	builder := w.client.GraphQL().Get().
		WithClassName(CatalogClass).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit)
	if where := buildWhere(f); where != nil {
		builder = builder.WithWhere(where)
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	parsed, err := parseGraphQLResponse[catalogQueryResponse](result)
	if err != nil {
		return nil, err
	}

	items := make([]RetrievedItem, 0, len(parsed.Get.CatalogItem))
	for _, r := range parsed.Get.CatalogItem {
		items = append(items, RetrievedItem{Item: r.toItem(), Score: r.Additional.Certainty})
	}
	return items, nil
}

// QueryByFilters implements Index. Results are ordered by release year
// descending because filter-only queries have no semantic score.
func (w *WeaviateIndex) QueryByFilters(ctx context.Context, f datatypes.QueryFilters, limit int) ([]RetrievedItem, error) {
	sortBy := graphql.Sort{
		Path:  []string{"year"},
		Order: graphql.Desc,
	}

	builder := w.client.GraphQL().Get().
		WithClassName(CatalogClass).
		WithFields(catalogFields...).
		WithSort(sortBy).
		WithLimit(limit)
	if where := buildWhere(f); where != nil {
		builder = builder.WithWhere(where)
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("filter query failed: %w", err)
	}

	parsed, err := parseGraphQLResponse[catalogQueryResponse](result)
	if err != nil {
		return nil, err
	}

	items := make([]RetrievedItem, 0, len(parsed.Get.CatalogItem))
	for _, r := range parsed.Get.CatalogItem {
		items = append(items, RetrievedItem{Item: r.toItem()})
	}
	return items, nil
}

// GetByTitle implements Index.
func (w *WeaviateIndex) GetByTitle(ctx context.Context, title string) (*datatypes.CatalogItem, error) {
	where := filters.Where().
		WithPath([]string{"title"}).
		WithOperator(filters.Equal).
		WithValueString(title)

	result, err := w.client.GraphQL().Get().
		WithClassName(CatalogClass).
		WithFields(catalogFields...).
		WithWhere(where).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("title lookup failed: %w", err)
	}

	parsed, err := parseGraphQLResponse[catalogQueryResponse](result)
	if err != nil {
		return nil, err
	}
	if len(parsed.Get.CatalogItem) == 0 {
		return nil, ErrNotFound
	}
	item := parsed.Get.CatalogItem[0].toItem()
	return &item, nil
}

// FetchVector implements Index.
func (w *WeaviateIndex) FetchVector(ctx context.Context, title string) ([]float32, error) {
	where := filters.Where().
		WithPath([]string{"title"}).
		WithOperator(filters.Equal).
		WithValueString(title)

	result, err := w.client.GraphQL().Get().
		WithClassName(CatalogClass).
		WithFields(graphql.Field{
			Name:   "_additional",
			Fields: []graphql.Field{{Name: "vector"}},
		}).
		WithWhere(where).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector fetch failed: %w", err)
	}

	parsed, err := parseGraphQLResponse[catalogQueryResponse](result)
	if err != nil {
		return nil, err
	}
	if len(parsed.Get.CatalogItem) == 0 || len(parsed.Get.CatalogItem[0].Additional.Vector) == 0 {
		return nil, ErrNotFound
	}
	return parsed.Get.CatalogItem[0].Additional.Vector, nil
}

// Upsert implements Index using the batch API.
func (w *WeaviateIndex) Upsert(ctx context.Context, items []datatypes.CatalogItem, vectors [][]float32) error {
	if len(items) != len(vectors) {
		return fmt.Errorf("items/vectors length mismatch: %d vs %d", len(items), len(vectors))
	}
	if len(items) == 0 {
		return nil
	}

	batcher := w.client.Batch().ObjectsBatcher()
	for i, item := range items {
		obj := &models.Object{
			ID:    catalogObjectID(item.Title),
			Class: CatalogClass,
			Properties: map[string]any{
				"title":        item.Title,
				"genres":       item.Genres,
				"year":         item.Year,
				"content_type": item.ContentType,
				"country":      item.Country,
				"summary":      item.Summary,
				"cast":         item.Cast,
				"director":     item.Director,
				"rating":       item.Rating,
				"duration":     item.Duration,
			},
			Vector: vectors[i],
		}
		batcher = batcher.WithObjects(obj)
	}

	resp, err := batcher.Do(ctx)
	if err != nil {
		return fmt.Errorf("batch upsert failed: %w", err)
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch upsert rejected object: %s", obj.Result.Errors.Error[0].Message)
		}
	}
	slog.Debug("Upserted catalog batch", "count", len(items))
	return nil
}
