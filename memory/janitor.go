// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memory

import (
	"context"
	"log/slog"
	"time"
)

// JanitorConfig configures the idle-session sweeper.
type JanitorConfig struct {
	// TTL is how long a session may sit idle before the janitor
	// evicts it.
	TTL time.Duration

	// Interval is the sweep period.
	Interval time.Duration

	// Clock supplies time. Tests substitute a fake.
	Clock Clock
}

// DefaultJanitorConfig returns the production configuration: sessions
// idle for an hour are swept every five minutes.
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		TTL:      time.Hour,
		Interval: 5 * time.Minute,
		Clock:    systemClock{},
	}
}

// Janitor periodically evicts idle sessions from a Store.
type Janitor struct {
	store *Store
	cfg   JanitorConfig
}

// NewJanitor creates a Janitor over store, applying defaults for zero
// config fields.
func NewJanitor(store *Store, cfg JanitorConfig) *Janitor {
	def := DefaultJanitorConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}
	return &Janitor{store: store, cfg: cfg}
}

// Run sweeps until ctx is cancelled. Call in a goroutine.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	slog.Info("Session janitor started", "ttl", j.cfg.TTL, "interval", j.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Session janitor stopped")
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep performs one eviction pass and returns how many sessions were
// removed.
func (j *Janitor) Sweep() int {
	cutoff := j.cfg.Clock.Now().Add(-j.cfg.TTL)
	return j.store.evictIdle(cutoff)
}
