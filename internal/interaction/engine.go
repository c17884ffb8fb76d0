// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package interaction

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wildmere/wildmere/internal/audit"
	"github.com/wildmere/wildmere/internal/core"
	"github.com/wildmere/wildmere/internal/player"
	"github.com/wildmere/wildmere/internal/world"
)

var tracer = otel.Tracer("wildmere/interaction")

// Outcome classifies one resolution pass.
type Outcome int

const (
	// OutcomeObjectNotFound means the object id is unknown in the player's
	// level: a client/session desync, logged and otherwise ignored.
	OutcomeObjectNotFound Outcome = iota
	// OutcomeUnhandled means no module claims the object. Many interactions
	// are inert by design; this is acknowledged silently.
	OutcomeUnhandled
	// OutcomeRejected means a claim existed but validation or execution
	// matching failed: a potential forgery, recorded for moderation review.
	OutcomeRejected
	// OutcomeApplied means exactly one gameplay effect was applied.
	OutcomeApplied
	// OutcomeFailed means an external collaborator failed mid-pass. The
	// pass was aborted; partial effects are not rolled back.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeObjectNotFound:
		return "object_not_found"
	case OutcomeUnhandled:
		return "unhandled"
	case OutcomeRejected:
		return "rejected"
	case OutcomeApplied:
		return "applied"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ObjectLocator resolves a placed object within a level. The world loader
// implements it.
type ObjectLocator interface {
	Find(levelID, objectID string) (*world.NetworkedObject, bool)
}

// Engine orchestrates one resolution pass per inbound interaction request:
// locate the object, let registered modules compete for the claim, validate
// the specific request, execute at most one effect, and run the completion
// hook.
type Engine struct {
	objects  ObjectLocator
	registry *Registry
	sessions *core.SessionManager
	audit    audit.Recorder
	debug    bool
}

// EngineOption configures an Engine during construction.
type EngineOption func(*Engine)

// WithAuditRecorder configures where rejected and malformed requests are
// recorded. Defaults to an in-memory recorder.
func WithAuditRecorder(r audit.Recorder) EngineOption {
	return func(e *Engine) {
		e.audit = r
	}
}

// WithDebugLogging enables per-request debug logs of interaction traffic.
func WithDebugLogging(enabled bool) EngineOption {
	return func(e *Engine) {
		e.debug = enabled
	}
}

// NewEngine creates a dispatch engine.
func NewEngine(objects ObjectLocator, registry *Registry, sessions *core.SessionManager, opts ...EngineOption) *Engine {
	e := &Engine{
		objects:  objects,
		registry: registry,
		sessions: sessions,
		audit:    audit.NewMemoryRecorder(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PrepareWorld fans level activation out to every registered module. Called
// by the session subsystem when a level's object set becomes active for a
// player.
func (e *Engine) PrepareWorld(levelID string, objectIDs []string, p *player.Player) {
	e.registry.PrepareWorld(levelID, objectIDs, p)
	e.sessions.SetLevel(p.ID, levelID)
}

// ResolveInteraction runs one resolution pass. The asserted state token
// comes from the client and is treated as a hint only; every decision is
// re-derived from the server-held tree. The returned error is non-nil only
// for OutcomeFailed.
func (e *Engine) ResolveInteraction(ctx context.Context, p *player.Player, interactionID, objectID string, assertedState int) (outcome Outcome, err error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "interaction.resolve",
		trace.WithAttributes(
			attribute.String("interaction.id", interactionID),
			attribute.String("object.id", objectID),
			attribute.String("player.id", p.ID.String()),
		),
	)
	defer func() {
		span.SetAttributes(attribute.String("interaction.outcome", outcome.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if e.debug {
		slog.DebugContext(ctx, "interaction request",
			"player_id", p.ID.String(),
			"interaction_id", interactionID,
			"object_id", objectID,
			"asserted_state", assertedState,
		)
	}

	// Locate. Unknown ids are a desync, not an error to the client.
	levelID := p.Level()
	obj, ok := e.objects.Find(levelID, objectID)
	if !ok {
		slog.InfoContext(ctx, "interaction against unknown object",
			"player_id", p.ID.String(),
			"level_id", levelID,
			"object_id", objectID,
		)
		e.recordOutcome("none", OutcomeObjectNotFound, start)
		return OutcomeObjectNotFound, nil
	}

	// Claim: first registered module whose tree-walk accepts wins.
	module, ok := e.registry.Resolve(p, interactionID, obj)
	if !ok {
		e.recordOutcome("none", OutcomeUnhandled, start)
		return OutcomeUnhandled, nil
	}
	span.SetAttributes(attribute.String("interaction.module", module.Name()))

	// Steps 3-5 mutate player-owned state; overlapping requests from the
	// same player are serialized here while other players proceed.
	mu := e.sessions.InteractionLock(p.ID)
	mu.Lock()
	defer mu.Unlock()

	// Validate: the module independently re-checks the specific request.
	if validity := module.IsDataRequestValid(p, interactionID, obj, assertedState); validity != ValidityValid {
		e.recordRejection(ctx, p, module, interactionID, obj, "rejected", "claim validation failed")
		e.recordOutcome(module.Name(), OutcomeRejected, start)
		return OutcomeRejected, nil
	}

	// Match & execute: re-walk the tree with the same traversal discipline
	// the claim used; the first node whose HandleCommand succeeds ends the
	// pass. One resolution pass yields at most one applied effect.
	applied, execErr := e.execute(module, p, interactionID, obj)
	if execErr != nil {
		slog.ErrorContext(ctx, "interaction execution failed",
			"player_id", p.ID.String(),
			"module", module.Name(),
			"object_id", obj.ID,
			"error", execErr,
		)
		e.recordOutcome(module.Name(), OutcomeFailed, start)
		return OutcomeFailed, execErr
	}
	if !applied {
		// The module claimed the object but refused every node: malformed
		// parameters or a forged step assertion.
		e.recordRejection(ctx, p, module, interactionID, obj, "malformed", "no node accepted execution")
		e.recordOutcome(module.Name(), OutcomeRejected, start)
		return OutcomeRejected, nil
	}

	// Complete. A failing completion hook does not unwind applied effects.
	if !module.HandleInteractionSuccess(p, interactionID, obj, assertedState) {
		slog.WarnContext(ctx, "interaction completion hook failed",
			"player_id", p.ID.String(),
			"module", module.Name(),
			"object_id", obj.ID,
		)
	}

	if e.debug {
		slog.DebugContext(ctx, "interaction applied",
			"player_id", p.ID.String(),
			"module", module.Name(),
			"object_id", obj.ID,
		)
	}
	e.recordOutcome(module.Name(), OutcomeApplied, start)
	return OutcomeApplied, nil
}

// execute walks the object tree and invokes HandleCommand per node until one
// accepts. Module panics are recovered and classified as collaborator
// failures so a single bad request never takes down the session worker.
func (e *Engine) execute(module Module, p *player.Player, interactionID string, obj *world.NetworkedObject) (applied bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			applied = false
			err = ErrCollaboratorFailure(module.Name(), panicError(r))
		}
	}()

	ec := make(Context)
	applied = obj.Visit(func(node, parent *world.StateNode) bool {
		return module.HandleCommand(p, interactionID, obj, node, parent, ec)
	})
	return applied, nil
}

// recordRejection writes a moderation-review entry. Audit failures are
// logged and swallowed; they must not change the client-visible behavior.
func (e *Engine) recordRejection(ctx context.Context, p *player.Player, module Module, interactionID string, obj *world.NetworkedObject, outcome, reason string) {
	slog.WarnContext(ctx, "interaction request rejected",
		"player_id", p.ID.String(),
		"account_id", p.AccountID,
		"module", module.Name(),
		"interaction_id", interactionID,
		"object_id", obj.ID,
		"reason", reason,
	)

	entry := audit.Entry{
		ID:            core.NewULID(),
		PlayerID:      p.ID.String(),
		AccountID:     p.AccountID,
		LevelID:       obj.LevelID,
		ObjectID:      obj.ID,
		InteractionID: interactionID,
		Outcome:       outcome,
		Reason:        reason,
		CreatedAt:     time.Now().UTC(),
	}
	if err := e.audit.Record(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "failed to record audit entry",
			"entry_id", entry.ID.String(),
			"error", err,
		)
	}
}

func (e *Engine) recordOutcome(module string, outcome Outcome, start time.Time) {
	Resolutions.WithLabelValues(module, outcome.String()).Inc()
	ResolutionDuration.WithLabelValues(module).Observe(time.Since(start).Seconds())
}

// panicError converts a recovered panic value into an error.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return oops.Errorf("module panic: %v", r)
}
