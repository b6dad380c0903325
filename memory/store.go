// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package memory provides bounded in-process conversation memory keyed
// by session ID, plus a janitor that evicts idle sessions.
//
// Locking is per session: concurrent requests for different sessions
// never contend, and no lock is ever held across external I/O. All
// operations copy message slices on the way out so callers can never
// observe later mutations.
package memory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/reelmind/reelmind/datatypes"
)

// Clock abstracts time for testability. The janitor and the store's
// last-activity bookkeeping go through it.
type Clock interface {
	Now() time.Time
}

// systemClock is the production Clock backed by time.Now.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the production Clock.
func SystemClock() Clock { return systemClock{} }

// session holds one conversation's messages under its own lock.
type session struct {
	mu         sync.Mutex
	messages   []datatypes.Message
	lastActive time.Time
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// Capacity is the maximum number of messages retained per
	// session. Appending beyond it evicts the oldest messages.
	Capacity int

	// Clock supplies timestamps. Tests substitute a fake.
	Clock Clock
}

// DefaultStoreConfig returns the production configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Capacity: datatypes.MaxSessionMessages,
		Clock:    systemClock{},
	}
}

// Store is a concurrency-safe conversation memory.
//
// # Description
//
// Store maps session IDs to bounded FIFO message lists. The outer map
// is guarded by a read-write mutex that is only held long enough to
// find or create the session entry; message mutation happens under the
// per-session lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	capacity int
	clock    Clock
}

// NewStore creates a Store from cfg, applying defaults for zero
// fields.
func NewStore(cfg StoreConfig) *Store {
	if cfg.Capacity <= 0 {
		cfg.Capacity = datatypes.MaxSessionMessages
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	return &Store{
		sessions: make(map[string]*session),
		capacity: cfg.Capacity,
		clock:    cfg.Clock,
	}
}

// getOrCreate returns the session entry for id, creating it if needed.
func (s *Store) getOrCreate(id string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[id]; ok {
		return sess
	}
	sess = &session{lastActive: s.clock.Now()}
	s.sessions[id] = sess
	return sess
}

// Append adds one message to a session, evicting the oldest message
// when the capacity is exceeded. Empty session IDs are ignored.
func (s *Store) Append(sessionID string, msg datatypes.Message) {
	if sessionID == "" {
		return
	}
	sess := s.getOrCreate(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.append(s.clock.Now(), s.capacity, msg)
}

// AppendTurn adds a user/assistant pair atomically: a reader of the
// session history sees either both messages or neither.
func (s *Store) AppendTurn(sessionID string, user, assistant datatypes.Message) {
	if sessionID == "" {
		return
	}
	sess := s.getOrCreate(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	now := s.clock.Now()
	sess.append(now, s.capacity, user)
	sess.append(now, s.capacity, assistant)
}

// append adds one message under the session lock, held by the caller.
func (sess *session) append(now time.Time, capacity int, msg datatypes.Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	sess.messages = append(sess.messages, msg)
	if len(sess.messages) > capacity {
		overflow := len(sess.messages) - capacity
		sess.messages = append(sess.messages[:0], sess.messages[overflow:]...)
	}
	sess.lastActive = now
}

// History returns a copy of the session's messages in chronological
// order. Unknown sessions return an empty slice, never nil.
func (s *Store) History(sessionID string) []datatypes.Message {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return []datatypes.Message{}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]datatypes.Message, len(sess.messages))
	copy(out, sess.messages)
	return out
}

// Clear removes one session's memory. Returns true when the session
// existed. Clearing an unknown session is a no-op, not an error.
func (s *Store) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// ClearAll removes every session and returns how many were dropped.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sessions)
	s.sessions = make(map[string]*session)
	return n
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// evictIdle removes sessions whose last activity is older than cutoff.
// Called by the janitor.
func (s *Store) evictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastActive.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Debug("Evicted idle sessions", "count", evicted)
	}
	return evicted
}
