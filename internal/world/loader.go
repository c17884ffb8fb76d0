// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package world

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
)

// Error codes for level loading failures.
const (
	CodeLevelNotFound     = "LEVEL_NOT_FOUND"
	CodeBundleInvalid     = "BUNDLE_INVALID"
	CodeFormatUnsupported = "FORMAT_UNSUPPORTED"
)

// supportedFormat is the bundle format range this server understands.
// Major version bumps change the bundle layout and require a loader update.
const supportedFormat = ">= 1.0.0, < 2.0.0"

// Level is one loaded level's object set, immutable after Load returns.
type Level struct {
	ID      string
	objects map[string]*NetworkedObject
	ids     []string // declaration order
}

// Object resolves a placed object by id.
func (l *Level) Object(id string) (*NetworkedObject, bool) {
	obj, ok := l.objects[id]
	return obj, ok
}

// ObjectIDs returns the level's object ids in declaration order.
// The returned slice is a copy and safe to modify.
func (l *Level) ObjectIDs() []string {
	ids := make([]string, len(l.ids))
	copy(ids, l.ids)
	return ids
}

// Loader reads level bundles from a data directory and caches the built
// trees. Loaded levels are shared read-only; the cache is safe for
// concurrent use.
type Loader struct {
	dir        string
	constraint *semver.Constraints

	mu     sync.RWMutex
	levels map[string]*Level
}

// NewLoader creates a loader rooted at dir. Bundles live at
// dir/<levelID>.json.
func NewLoader(dir string) *Loader {
	// The constraint literal is a compile-time constant; parsing cannot fail.
	c, err := semver.NewConstraint(supportedFormat)
	if err != nil {
		panic("world: invalid supportedFormat constraint: " + err.Error())
	}
	return &Loader{
		dir:        dir,
		constraint: c,
		levels:     make(map[string]*Level),
	}
}

// Load returns the level's object set, reading and validating the bundle on
// first use. Subsequent calls return the cached level.
func (ld *Loader) Load(levelID string) (*Level, error) {
	ld.mu.RLock()
	level, ok := ld.levels[levelID]
	ld.mu.RUnlock()
	if ok {
		return level, nil
	}

	path := filepath.Join(ld.dir, levelID+".json")
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, oops.Code(CodeLevelNotFound).
			With("level_id", levelID).
			With("path", path).
			Wrap(err)
	}

	level, err = buildLevel(levelID, data, ld.constraint)
	if err != nil {
		return nil, err
	}

	ld.mu.Lock()
	// Another goroutine may have loaded the same level while this one was
	// parsing; keep the first copy so object pointers stay stable.
	if existing, ok := ld.levels[levelID]; ok {
		level = existing
	} else {
		ld.levels[levelID] = level
	}
	ld.mu.Unlock()

	slog.Info("level loaded", "level_id", levelID, "objects", len(level.ids))
	return level, nil
}

// Find resolves an object by level and object id. Returns false when the
// level is not loaded or the object is unknown; it never triggers a load.
func (ld *Loader) Find(levelID, objectID string) (*NetworkedObject, bool) {
	ld.mu.RLock()
	level, ok := ld.levels[levelID]
	ld.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return level.Object(objectID)
}

// Unload drops a level from the cache when its last session ends.
func (ld *Loader) Unload(levelID string) {
	ld.mu.Lock()
	delete(ld.levels, levelID)
	ld.mu.Unlock()
}

// buildLevel validates bundle JSON and builds the immutable tree set.
func buildLevel(levelID string, data []byte, constraint *semver.Constraints) (*Level, error) {
	if err := ValidateBundle(data); err != nil {
		return nil, oops.Code(CodeBundleInvalid).
			With("level_id", levelID).
			Wrap(err)
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, oops.Code(CodeBundleInvalid).
			With("level_id", levelID).
			Wrap(err)
	}

	version, err := semver.NewVersion(bundle.FormatVersion)
	if err != nil {
		return nil, oops.Code(CodeFormatUnsupported).
			With("level_id", levelID).
			With("format_version", bundle.FormatVersion).
			Wrap(err)
	}
	if !constraint.Check(version) {
		return nil, oops.Code(CodeFormatUnsupported).
			With("level_id", levelID).
			With("format_version", bundle.FormatVersion).
			With("supported", supportedFormat).
			Errorf("unsupported bundle format version %s", bundle.FormatVersion)
	}

	if bundle.LevelID != levelID {
		return nil, oops.Code(CodeBundleInvalid).
			With("level_id", levelID).
			With("bundle_level_id", bundle.LevelID).
			Errorf("bundle declares level %q, expected %q", bundle.LevelID, levelID)
	}

	level := &Level{
		ID:      levelID,
		objects: make(map[string]*NetworkedObject, len(bundle.Objects)),
		ids:     make([]string, 0, len(bundle.Objects)),
	}
	for _, bo := range bundle.Objects {
		if _, dup := level.objects[bo.ID]; dup {
			return nil, oops.Code(CodeBundleInvalid).
				With("level_id", levelID).
				With("object_id", bo.ID).
				Errorf("duplicate object id %q", bo.ID)
		}

		stateKeys := make([]string, 0, len(bo.StateInfo))
		stateInfo := make(map[string][]*StateNode, len(bo.StateInfo))
		for _, group := range bo.StateInfo {
			stateKeys = append(stateKeys, group.Key)
			stateInfo[group.Key] = buildNodes(group.States)
		}

		level.objects[bo.ID] = NewNetworkedObject(bo.ID, levelID, stateKeys, stateInfo)
		level.ids = append(level.ids, bo.ID)
	}
	return level, nil
}

func buildNodes(nodes []BundleNode) []*StateNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*StateNode, 0, len(nodes))
	for _, bn := range nodes {
		node := &StateNode{
			Opcode: bn.Opcode,
			Params: append([]string(nil), bn.Params...),
		}
		if len(bn.Branches) > 0 {
			node.Branches = make(map[string][]*StateNode, len(bn.Branches))
			for key, children := range bn.Branches {
				node.Branches[key] = buildNodes(children)
			}
		}
		out = append(out, node)
	}
	return out
}
