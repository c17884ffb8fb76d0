// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package interaction

import (
	"github.com/samber/oops"
)

// Error codes for interaction resolution failures.
const (
	CodeObjectNotFound      = "OBJECT_NOT_FOUND"
	CodeRequestRejected     = "REQUEST_REJECTED"
	CodeMalformedParameters = "MALFORMED_PARAMETERS"
	CodeCollaboratorFailure = "COLLABORATOR_FAILURE"
)

// ErrObjectNotFound creates an error for an unknown object id. This is a
// client/session desync, not an attack signal.
func ErrObjectNotFound(levelID, objectID string) error {
	return oops.Code(CodeObjectNotFound).
		With("level_id", levelID).
		With("object_id", objectID).
		Errorf("object %s not found in level %s", objectID, levelID)
}

// ErrRequestRejected creates an error for a claim that failed validation.
// Treated as a potential forgery attempt; carries the player identity for
// moderation review.
func ErrRequestRejected(accountID, interactionID, objectID string) error {
	return oops.Code(CodeRequestRejected).
		With("account_id", accountID).
		With("interaction_id", interactionID).
		With("object_id", objectID).
		Errorf("interaction request rejected")
}

// ErrMalformedParameters creates an error for a claimed opcode whose
// parameters failed the module's defensive parsing.
func ErrMalformedParameters(module, objectID string) error {
	return oops.Code(CodeMalformedParameters).
		With("module", module).
		With("object_id", objectID).
		Errorf("matched node has malformed parameters")
}

// ErrCollaboratorFailure wraps a failure (or recovered panic) from an
// external collaborator during execution. The resolution pass is aborted;
// already-applied partial effects are not rolled back.
func ErrCollaboratorFailure(module string, cause error) error {
	return oops.Code(CodeCollaboratorFailure).
		With("module", module).
		Wrap(cause)
}
