// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

// Package audit records rejected and malformed interaction attempts for
// moderation review. A rejected claim means a client asserted a behavior
// step the server's own tree does not support, which is the signature of a
// forged or replayed request.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entry is one recorded interaction anomaly.
type Entry struct {
	ID            ulid.ULID
	PlayerID      string
	AccountID     string
	LevelID       string
	ObjectID      string
	InteractionID string
	Outcome       string // "rejected" or "malformed"
	Reason        string
	CreatedAt     time.Time
}

// Recorder persists audit entries. Record must not block interaction
// dispatch longer than ordinary collaborator I/O; failures are logged by the
// caller, never surfaced to the client.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// MemoryRecorder is an in-memory Recorder for tests and standalone runs.
type MemoryRecorder struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends an entry.
func (r *MemoryRecorder) Record(_ context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *MemoryRecorder) Recent(_ context.Context, limit int) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := min(limit, len(r.entries))
	out := make([]Entry, 0, n)
	for i := len(r.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}
