// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/reelmind/reelmind/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable Clock for tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func userMsg(text string) datatypes.Message {
	return datatypes.Message{Role: "user", Text: text}
}

func assistantMsg(text string) datatypes.Message {
	return datatypes.Message{Role: "assistant", Text: text}
}

func TestStore_AppendAndHistory(t *testing.T) {
	s := NewStore(DefaultStoreConfig())

	s.Append("s1", userMsg("hello"))
	s.Append("s1", assistantMsg("hi there"))

	got := s.History("s1")
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "hello", got[0].Text)
	assert.Equal(t, "assistant", got[1].Role)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestStore_FIFOCap(t *testing.T) {
	s := NewStore(StoreConfig{Capacity: 10})

	// 15 appends into a cap of 10 keeps only the newest 10.
	for i := 0; i < 15; i++ {
		s.Append("s1", userMsg(fmt.Sprintf("m%d", i)))
	}

	got := s.History("s1")
	require.Len(t, got, 10)
	assert.Equal(t, "m5", got[0].Text)
	assert.Equal(t, "m14", got[9].Text)
}

func TestStore_AppendTurnAtomic(t *testing.T) {
	s := NewStore(StoreConfig{Capacity: 10})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.AppendTurn("s1", userMsg(fmt.Sprintf("q%d", i)), assistantMsg(fmt.Sprintf("a%d", i)))
		}(i)
	}

	// Readers must never observe a half-appended turn: history length
	// stays even and each user message is followed by its answer.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			got := s.History("s1")
			assert.Equal(t, 0, len(got)%2, "history length must stay even")
		}
	}()

	wg.Wait()
	<-done

	got := s.History("s1")
	require.Len(t, got, 10)
	for i := 0; i < len(got); i += 2 {
		assert.Equal(t, "user", got[i].Role)
		assert.Equal(t, "assistant", got[i+1].Role)
	}
}

func TestStore_HistoryIsACopy(t *testing.T) {
	s := NewStore(DefaultStoreConfig())
	s.Append("s1", userMsg("original"))

	got := s.History("s1")
	got[0].Text = "mutated"

	assert.Equal(t, "original", s.History("s1")[0].Text)
}

func TestStore_UnknownSession(t *testing.T) {
	s := NewStore(DefaultStoreConfig())

	got := s.History("nope")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_ClearIdempotent(t *testing.T) {
	s := NewStore(DefaultStoreConfig())
	s.Append("s1", userMsg("hello"))

	assert.True(t, s.Clear("s1"))
	assert.False(t, s.Clear("s1"))
	assert.Empty(t, s.History("s1"))
}

func TestStore_ClearAll(t *testing.T) {
	s := NewStore(DefaultStoreConfig())
	s.Append("s1", userMsg("a"))
	s.Append("s2", userMsg("b"))
	s.Append("s3", userMsg("c"))

	assert.Equal(t, 3, s.ClearAll())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.ClearAll())
}

func TestStore_EmptySessionIDIgnored(t *testing.T) {
	s := NewStore(DefaultStoreConfig())

	s.Append("", userMsg("anonymous"))
	s.AppendTurn("", userMsg("q"), assistantMsg("a"))

	assert.Equal(t, 0, s.Len())
}

func TestStore_ConcurrentSessions(t *testing.T) {
	s := NewStore(StoreConfig{Capacity: 10})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("session-%d", i%5)
			for j := 0; j < 20; j++ {
				s.Append(id, userMsg(fmt.Sprintf("m%d", j)))
				_ = s.History(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, s.Len())
	for i := 0; i < 5; i++ {
		assert.Len(t, s.History(fmt.Sprintf("session-%d", i)), 10)
	}
}

func TestJanitor_SweepEvictsIdleSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(StoreConfig{Capacity: 10, Clock: clock})
	j := NewJanitor(s, JanitorConfig{TTL: time.Hour, Interval: time.Minute, Clock: clock})

	s.Append("old", userMsg("stale"))
	clock.Advance(2 * time.Hour)
	s.Append("fresh", userMsg("recent"))

	evicted := j.Sweep()

	assert.Equal(t, 1, evicted)
	assert.Empty(t, s.History("old"))
	assert.Len(t, s.History("fresh"), 1)
}

func TestJanitor_ActivityResetsTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(StoreConfig{Capacity: 10, Clock: clock})
	j := NewJanitor(s, JanitorConfig{TTL: time.Hour, Interval: time.Minute, Clock: clock})

	s.Append("s1", userMsg("first"))
	clock.Advance(50 * time.Minute)
	s.Append("s1", userMsg("still here"))
	clock.Advance(30 * time.Minute)

	assert.Equal(t, 0, j.Sweep())
	assert.Len(t, s.History("s1"), 2)
}
