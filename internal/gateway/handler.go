// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/wildmere/wildmere/internal/core"
	"github.com/wildmere/wildmere/internal/interaction"
	"github.com/wildmere/wildmere/internal/player"
	"github.com/wildmere/wildmere/internal/protocol"
)

// netConnection adapts a net.Conn to the player.Connection contract, framing
// packets as JSON envelopes, one per line. Writes are serialized; the session
// worker and module sends share the socket.
type netConnection struct {
	id ulid.ULID

	mu   sync.Mutex
	conn net.Conn
}

func newNetConnection(conn net.Conn) *netConnection {
	return &netConnection{id: core.NewULID(), conn: conn}
}

// ID returns the connection id.
func (c *netConnection) ID() ulid.ULID { return c.id }

// SendPacket frames and writes one envelope. Fire-and-forget from the
// module's point of view; a dead socket surfaces as an error the caller logs.
func (c *netConnection) SendPacket(pkt any) error {
	var msgType string
	switch pkt.(type) {
	case protocol.InventoryUpdate:
		msgType = protocol.TypeInventoryUpdate
	case protocol.InteractionAck:
		msgType = protocol.TypeInteractionAck
	default:
		return fmt.Errorf("unsupported packet type %T", pkt)
	}

	data, err := protocol.Encode(msgType, pkt)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write %s packet: %w", msgType, err)
	}
	return nil
}

// ConnectionHandler drives one client connection: hello binds the identity,
// join_level activates content, interaction requests feed the engine.
type ConnectionHandler struct {
	conn     *netConnection
	reader   *bufio.Reader
	engine   *interaction.Engine
	sessions *core.SessionManager
	levels   LevelCatalog
	players  PlayerResolver

	// player is nil until the hello handshake completes.
	player *player.Player
}

// NewConnectionHandler creates a handler for one accepted connection.
func NewConnectionHandler(conn net.Conn, engine *interaction.Engine, sessions *core.SessionManager, levels LevelCatalog, players PlayerResolver) *ConnectionHandler {
	return &ConnectionHandler{
		conn:     newNetConnection(conn),
		reader:   bufio.NewReader(conn),
		engine:   engine,
		sessions: sessions,
		levels:   levels,
		players:  players,
	}
}

// Handle processes the connection until closed.
func (h *ConnectionHandler) Handle(ctx context.Context) {
	defer func() {
		if h.player != nil {
			h.sessions.Disconnect(h.player.ID, h.conn.ID())
		}
		if err := h.conn.conn.Close(); err != nil {
			slog.Debug("error closing connection", "error", err)
		}
	}()

	lineCh := make(chan []byte)
	errCh := make(chan error, 1)
	readerDone := make(chan struct{})
	defer close(readerDone)

	go func() {
		for {
			line, err := h.reader.ReadBytes('\n')
			if err != nil {
				errCh <- err
				return
			}
			select {
			case lineCh <- line:
			case <-readerDone:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-errCh:
			if !errors.Is(err, io.EOF) {
				slog.Debug("connection read error",
					"conn_id", h.conn.ID().String(),
					"error", err,
				)
			}
			return

		case line := <-lineCh:
			if !h.processEnvelope(ctx, line) {
				return
			}
		}
	}
}

// processEnvelope handles one inbound message. Returns false when the
// connection should close.
func (h *ConnectionHandler) processEnvelope(ctx context.Context, line []byte) bool {
	env, err := protocol.Decode(line)
	if err != nil {
		slog.Debug("malformed envelope",
			"conn_id", h.conn.ID().String(),
			"error", err,
		)
		// A peer that does not speak the protocol gets disconnected rather
		// than a diagnostic that leaks parser internals.
		return false
	}

	switch env.Type {
	case protocol.TypeHello:
		return h.handleHello(ctx, env)
	case protocol.TypeJoinLevel:
		return h.handleJoinLevel(ctx, env)
	case protocol.TypeInteraction:
		return h.handleInteraction(ctx, env)
	default:
		slog.Debug("unexpected envelope type",
			"conn_id", h.conn.ID().String(),
			"type", env.Type,
		)
		return true
	}
}

func (h *ConnectionHandler) handleHello(ctx context.Context, env protocol.Envelope) bool {
	if h.player != nil {
		slog.Debug("duplicate hello", "conn_id", h.conn.ID().String())
		return true
	}

	var hello protocol.Hello
	if err := env.DecodePayload(&hello); err != nil {
		slog.Debug("malformed hello", "conn_id", h.conn.ID().String(), "error", err)
		return false
	}
	if hello.AccountID == "" || hello.Name == "" {
		slog.Debug("hello missing identity", "conn_id", h.conn.ID().String())
		return false
	}

	p, err := h.players.ResolvePlayer(ctx, hello.AccountID, hello.Name, h.conn)
	if err != nil {
		slog.Warn("player resolution failed",
			"conn_id", h.conn.ID().String(),
			"account_id", hello.AccountID,
			"error", err,
		)
		return false
	}

	h.player = p
	h.sessions.Connect(p.ID, h.conn.ID())
	slog.Info("player connected",
		"conn_id", h.conn.ID().String(),
		"player_id", p.ID.String(),
		"account_id", p.AccountID,
	)
	return true
}

func (h *ConnectionHandler) handleJoinLevel(ctx context.Context, env protocol.Envelope) bool {
	if h.player == nil {
		slog.Debug("join_level before hello", "conn_id", h.conn.ID().String())
		return false
	}

	var join protocol.JoinLevel
	if err := env.DecodePayload(&join); err != nil {
		slog.Debug("malformed join_level", "conn_id", h.conn.ID().String(), "error", err)
		return false
	}

	level, err := h.levels.Load(join.LevelID)
	if err != nil {
		slog.Warn("level load failed",
			"conn_id", h.conn.ID().String(),
			"level_id", join.LevelID,
			"error", err,
		)
		return true
	}

	p := h.player
	p.SetLevel(join.LevelID)
	h.engine.PrepareWorld(join.LevelID, level.ObjectIDs(), p)
	slog.Info("player joined level",
		"player_id", p.ID.String(),
		"level_id", join.LevelID,
	)
	return true
}

func (h *ConnectionHandler) handleInteraction(ctx context.Context, env protocol.Envelope) bool {
	if h.player == nil {
		slog.Debug("interaction before hello", "conn_id", h.conn.ID().String())
		return false
	}

	var req protocol.InteractionRequest
	if err := env.DecodePayload(&req); err != nil {
		slog.Debug("malformed interaction request",
			"conn_id", h.conn.ID().String(),
			"error", err,
		)
		return true
	}

	p := h.player
	outcome, err := h.engine.ResolveInteraction(ctx, p, req.InteractionID, req.ObjectID, req.State)
	if err != nil {
		// A failed execution leaves module state in doubt; drop the
		// connection instead of acknowledging on top of it.
		slog.Error("interaction resolution failed",
			"player_id", p.ID.String(),
			"object_id", req.ObjectID,
			"error", err,
		)
		return false
	}

	// Applied and unhandled interactions are acknowledged; rejected ones are
	// dropped silently so validation logic is not leaked to a probing client.
	if outcome == interaction.OutcomeApplied || outcome == interaction.OutcomeUnhandled {
		ack := protocol.InteractionAck{ObjectID: req.ObjectID, Source: p.AccountID}
		if err := h.conn.SendPacket(ack); err != nil {
			slog.Debug("ack send failed",
				"conn_id", h.conn.ID().String(),
				"error", err,
			)
		}
	}
	return true
}
