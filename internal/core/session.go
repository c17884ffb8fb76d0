// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

// Package core contains session tracking and identifier generation for the
// game server runtime.
package core

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Session represents a player's ongoing presence in the game.
type Session struct {
	PlayerID     ulid.ULID
	Connections  []ulid.ULID // Active connection IDs
	LevelID      string      // Currently loaded level, empty before first join
	LastActivity time.Time
}

// copySession returns a defensive copy of a session to prevent external
// modification.
func copySession(s *Session) *Session {
	connections := make([]ulid.ULID, len(s.Connections))
	copy(connections, s.Connections)

	return &Session{
		PlayerID:     s.PlayerID,
		Connections:  connections,
		LevelID:      s.LevelID,
		LastActivity: s.LastActivity,
	}
}

// SessionManager manages player sessions. It also owns the per-player
// interaction lock: the dispatch engine serializes overlapping interaction
// resolutions for the same player through InteractionLock while different
// players proceed independently.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[ulid.ULID]*Session // keyed by PlayerID
	locks    map[ulid.ULID]*sync.Mutex
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[ulid.ULID]*Session),
		locks:    make(map[ulid.ULID]*sync.Mutex),
	}
}

// Connect attaches a connection to a player's session.
// Creates the session if it doesn't exist.
// Returns a copy of the session to prevent external modification.
func (sm *SessionManager) Connect(playerID, connID ulid.ULID) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[playerID]
	if !exists {
		session = &Session{
			PlayerID:    playerID,
			Connections: make([]ulid.ULID, 0, 1),
		}
		sm.sessions[playerID] = session
	}

	session.Connections = append(session.Connections, connID)
	session.LastActivity = time.Now()

	return copySession(session)
}

// Disconnect removes a connection from a player's session.
// The session persists even with zero connections.
func (sm *SessionManager) Disconnect(playerID, connID ulid.ULID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[playerID]
	if !exists {
		slog.Debug("disconnect called for non-existent session",
			"player_id", playerID.String(),
			"conn_id", connID.String(),
		)
		return
	}

	for i, id := range session.Connections {
		if id == connID {
			session.Connections = append(session.Connections[:i], session.Connections[i+1:]...)
			break
		}
	}
}

// SetLevel records the level a player currently occupies.
func (sm *SessionManager) SetLevel(playerID ulid.ULID, levelID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[playerID]
	if !exists {
		slog.Debug("SetLevel called for non-existent session",
			"player_id", playerID.String(),
			"level_id", levelID,
		)
		return
	}
	session.LevelID = levelID
	session.LastActivity = time.Now()
}

// GetSession returns a copy of a player's session, or nil if none exists.
func (sm *SessionManager) GetSession(playerID ulid.ULID) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[playerID]
	if !exists {
		return nil
	}
	return copySession(session)
}

// ListActiveSessions returns copies of all sessions with at least one
// connection.
func (sm *SessionManager) ListActiveSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	active := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		if len(s.Connections) > 0 {
			active = append(active, copySession(s))
		}
	}
	return active
}

// EndSession completely removes a player's session from the manager.
// The interaction lock for the player is retained so that an in-flight
// resolution pass keeps its mutual exclusion.
func (sm *SessionManager) EndSession(playerID ulid.ULID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, playerID)
}

// InteractionLock returns the mutex serializing interaction resolution for
// one player. The mutex is created on first use and shared by all callers
// for the same player ID.
func (sm *SessionManager) InteractionLock(playerID ulid.ULID) *sync.Mutex {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	mu, ok := sm.locks[playerID]
	if !ok {
		mu = &sync.Mutex{}
		sm.locks[playerID] = mu
	}
	return mu
}
