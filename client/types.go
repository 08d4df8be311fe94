package client

import (
	"fmt"

	"scene2d.dev/catalyst/authchain"
	"scene2d.dev/catalyst/entity"
)

// Challenge is the server-chosen random text servers use to recognize
// themselves on the network.
type Challenge struct {
	ChallengeText string `json:"challengeText"`
}

// DeployResponse is the server's acceptance of a deployment.
type DeployResponse struct {
	CreationTimestamp int64 `json:"creationTimestamp"`
}

// EntityPointer pairs one pointer with the entity currently active on it.
type EntityPointer struct {
	Pointer  string           `json:"pointer"`
	EntityID entity.ContentId `json:"entityId"`
}

// FailedDeployment is one record of the server's failed-deployment log.
// Diagnostic surface only; nothing in this module drives control flow
// off it.
type FailedDeployment struct {
	FailedDeploymentsRepo string            `json:"failedDeploymentsRepo"`
	EntityType            entity.EntityType `json:"entityType"`
	EntityID              entity.ContentId  `json:"entityId"`
	Reason                string            `json:"reason"`
	ErrorDescription      string            `json:"errorDescription"`
}

// ContentFileStatus reports availability for one content id.
type ContentFileStatus struct {
	ID        entity.ContentId `json:"cid"`
	Available bool             `json:"available"`
}

// EntityInformation is the audit record for one deployed entity: who
// signed it, when the server saw it, and whether it has been replaced.
type EntityInformation struct {
	Version        string           `json:"version"`
	LocalTimestamp int64            `json:"localTimestamp"`
	AuthChain      authchain.Chain  `json:"authChain"`
	OverwrittenBy  entity.ContentId `json:"overwrittenBy,omitempty"`
}

// ContentServerStatus reports the health surface of one content server.
type ContentServerStatus struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	CurrentTime       int64  `json:"currentTime"`
	LastImmutableTime int64  `json:"lastImmutableTime"`
	HistorySize       int64  `json:"historySize"`
}

// Snapshot is the server-published index of active entities, partitioned
// by kind. Each per-kind reference names the content id of a
// newline-delimited JSON index document.
type Snapshot struct {
	Entities SnapshotIndex `json:"entities"`
}

type SnapshotIndex struct {
	Scene    SnapshotRef `json:"scene"`
	Profile  SnapshotRef `json:"profile"`
	Wearable SnapshotRef `json:"wearable"`
	Emote    SnapshotRef `json:"emote"`
}

type SnapshotRef struct {
	Hash                            entity.ContentId `json:"hash"`
	LastIncludedDeploymentTimestamp int64            `json:"lastIncludedDeploymentTimestamp,omitempty"`
}

// Ref selects the per-kind index reference out of a snapshot.
func (s Snapshot) Ref(t entity.EntityType) (SnapshotRef, error) {
	switch t {
	case entity.TypeScene:
		return s.Entities.Scene, nil
	case entity.TypeProfile:
		return s.Entities.Profile, nil
	case entity.TypeWearable:
		return s.Entities.Wearable, nil
	case entity.TypeEmote:
		return s.Entities.Emote, nil
	}
	return SnapshotRef{}, fmt.Errorf("client: unknown entity type %q", t)
}

// EntitySnapshot is one line of a per-kind snapshot index. The pointer
// element type depends on the kind: parcels for scenes, URNs for
// wearables and emotes.
type EntitySnapshot[T any] struct {
	EntityID entity.ContentId `json:"entityId"`
	Pointers []T              `json:"pointers"`
}
