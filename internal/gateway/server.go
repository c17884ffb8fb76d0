// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

// Package gateway provides the client-facing transport: newline-delimited
// JSON envelopes over TCP, one logical worker per connection. Framing stops
// here; everything past the envelope decode is the interaction engine's
// domain.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/wildmere/wildmere/internal/core"
	"github.com/wildmere/wildmere/internal/interaction"
	"github.com/wildmere/wildmere/internal/player"
	"github.com/wildmere/wildmere/internal/world"
)

// PlayerResolver binds an announced account to a player with live
// collaborators. Account authentication itself lives in the account service;
// the gateway only forwards the announced identity.
type PlayerResolver interface {
	ResolvePlayer(ctx context.Context, accountID, name string, conn player.Connection) (*player.Player, error)
}

// LevelCatalog loads level content on first join.
type LevelCatalog interface {
	Load(levelID string) (*world.Level, error)
}

// Server accepts client connections and runs one handler per connection.
type Server struct {
	addr     string
	listener net.Listener
	engine   *interaction.Engine
	sessions *core.SessionManager
	levels   LevelCatalog
	players  PlayerResolver
	mu       sync.RWMutex
}

// NewServer creates a gateway server.
func NewServer(addr string, engine *interaction.Engine, sessions *core.SessionManager, levels LevelCatalog, players PlayerResolver) *Server {
	return &Server{
		addr:     addr,
		engine:   engine,
		sessions: sessions,
		levels:   levels,
		players:  players,
	}
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run starts the server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	slog.Info("gateway started", "addr", listener.Addr())

	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			slog.Debug("error closing listener", "error", err)
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				slog.Error("accept failed", "error", err)
				continue
			}
		}
		handler := NewConnectionHandler(conn, s.engine, s.sessions, s.levels, s.players)
		go handler.Handle(ctx)
	}
}
