// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

// Package protocol defines the logical fields of the client/server message
// envelope. Bytes-on-wire framing belongs to the transport; the gateway
// carries these envelopes as newline-delimited JSON, other transports may
// frame them differently.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/wildmere/wildmere/internal/player"
)

// Envelope message types.
const (
	TypeHello           = "hello"
	TypeJoinLevel       = "join_level"
	TypeInteraction     = "interaction"
	TypeInteractionAck  = "interaction_ack"
	TypeInventoryUpdate = "inventory_update"
)

// Envelope wraps one logical message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hello is the first message on a connection; it binds the connection to an
// account. Authentication itself is the account service's concern.
type Hello struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
}

// JoinLevel announces that the client entered a level.
type JoinLevel struct {
	LevelID string `json:"level_id"`
}

// InteractionRequest is the client's claim that it triggered a step of a
// world object. The engine treats State as a hint only; the authoritative
// behavior always comes from the server-held tree.
type InteractionRequest struct {
	ObjectID      string `json:"object_id"`
	InteractionID string `json:"interaction_id"`
	State         int    `json:"state"`
}

// InteractionAck echoes an accepted interaction request back to the
// requester.
type InteractionAck struct {
	ObjectID string `json:"object_id"`
	Source   string `json:"source"` // requesting account id
}

// InventoryUpdate carries an inventory delta to the client.
type InventoryUpdate struct {
	Items []player.Item `json:"items"`
}

// Encode builds an envelope around a payload.
func Encode(msgType string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: body})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// Decode parses a raw envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing type")
	}
	return env, nil
}

// DecodePayload unmarshals the envelope payload into v.
func (e Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s envelope has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("malformed %s payload: %w", e.Type, err)
	}
	return nil
}
