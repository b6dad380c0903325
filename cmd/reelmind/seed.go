// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/reelmind/reelmind/config"
	"github.com/reelmind/reelmind/llm"
	"github.com/reelmind/reelmind/retrieval"
	"github.com/reelmind/reelmind/seeder"
)

var (
	seedFile        string
	seedConcurrency int
	seedRate        float64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Embed and index a catalog file",
	Long: `seed reads a JSON catalog file, embeds each item's summary and
writes the items with their vectors into the index. Safe to re-run;
existing items are overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd.Context())
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "catalog.json", "path to the catalog JSON file")
	seedCmd.Flags().IntVar(&seedConcurrency, "concurrency", 4, "parallel embedding workers")
	seedCmd.Flags().Float64Var(&seedRate, "rate", 10, "embedding calls per second")
}

func runSeed(ctx context.Context) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	openaiClient, err := llm.NewOpenAIClient()
	if err != nil {
		return err
	}

	weaviateClient, err := newWeaviateClient(cfg.Weaviate.URL)
	if err != nil {
		return err
	}
	index := retrieval.NewWeaviateIndex(weaviateClient)
	if err := index.EnsureSchema(ctx); err != nil {
		return err
	}

	items, err := seeder.LoadCatalog(seedFile)
	if err != nil {
		return err
	}
	slog.Info("Loaded catalog file", "path", seedFile, "items", len(items))

	s := seeder.New(openaiClient, index, seeder.Config{
		Concurrency:     seedConcurrency,
		EmbedsPerSecond: rate.Limit(seedRate),
	})
	if err := s.Run(ctx, items); err != nil {
		return err
	}
	slog.Info("Seeding complete", "items", len(items))
	return nil
}
