// Package entity defines the versioned, content-addressed manifest that
// describes one deployable unit on a content server, together with the
// wire-level value types it is built from.
package entity

import (
	"encoding/json"
	"fmt"
)

// EntityVersion is the manifest schema version accepted by the content
// servers. New manifests are always built with this tag.
const EntityVersion = "v3"

// ContentId is a self-describing, content-addressed identifier.
//
// Values are produced by cidutil.Identify and compared by exact string
// equality, both locally and by the remote servers. A ContentId is never
// mutated after creation.
type ContentId string

func (c ContentId) String() string { return string(c) }

// EntityType is the closed set of entity kinds the servers know about.
// It selects which sub-structure of a snapshot document applies.
type EntityType string

const (
	TypeProfile  EntityType = "profile"
	TypeScene    EntityType = "scene"
	TypeWearable EntityType = "wearable"
	TypeEmote    EntityType = "emote"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case TypeProfile, TypeScene, TypeWearable, TypeEmote:
		return true
	}
	return false
}

func (t *EntityType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v := EntityType(s)
	if !v.Valid() {
		return fmt.Errorf("entity: unknown entity type %q", s)
	}
	*t = v
	return nil
}

// ContentFile maps one published relative path to the ContentId of its
// bytes. Immutable once part of a manifest.
type ContentFile struct {
	File string    `json:"file"`
	Hash ContentId `json:"hash"`
}

// Entity is the manifest for one deployable unit.
//
// ID is the ContentId of the manifest's own canonical serialization with
// ID held empty during hashing. It is computed exactly once, by the
// deploy builder, and never recomputed.
type Entity struct {
	ID        ContentId       `json:"id"`
	Version   string          `json:"version"`
	Type      EntityType      `json:"type"`
	Pointers  []string        `json:"pointers"`
	Timestamp int64           `json:"timestamp"`
	Content   []ContentFile   `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// ContentHash returns the ContentId recorded for the given relative
// path, or "" when the path is not part of the manifest.
func (e *Entity) ContentHash(path string) ContentId {
	for _, c := range e.Content {
		if c.File == path {
			return c.Hash
		}
	}
	return ""
}
