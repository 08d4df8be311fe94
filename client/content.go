package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"scene2d.dev/catalyst/entity"
)

// ActiveEntities returns the ids of entities whose deployments reference
// the given content id.
func (c *Client) ActiveEntities(ctx context.Context, id entity.ContentId) ([]entity.ContentId, error) {
	var out []entity.ContentId
	if err := c.getJSON(ctx, "ActiveEntities", "/content/contents/"+id.String()+"/active-entities", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Challenge fetches the server's random challenge text. Servers use it
// to recognize their own identity; for this client it is a passthrough.
func (c *Client) Challenge(ctx context.Context) (string, error) {
	var out Challenge
	if err := c.getJSON(ctx, "Challenge", "/content/challenge", &out); err != nil {
		return "", err
	}
	return out.ChallengeText, nil
}

// ContentFileExists probes the server for the given content id.
//
// Any non-OK status, including not-found and server errors, reports
// false rather than an error; only a transport failure errors. This
// leniency is deliberate and pinned by tests.
func (c *Client) ContentFileExists(ctx context.Context, id entity.ContentId) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/content/contents/"+id.String(), nil)
	if err != nil {
		return false, wrapError(KindNetwork, "ContentFileExists", "building request: "+err.Error(), err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, wrapError(KindNetwork, "ContentFileExists", "request failed: "+err.Error(), err)
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// ContentFilesExist bulk-checks availability for the given content ids.
//
// Results are returned in the order of ids regardless of how the server
// ordered its response; ids the server omitted report as unavailable.
func (c *Client) ContentFilesExist(ctx context.Context, ids []entity.ContentId) ([]ContentFileStatus, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var query strings.Builder
	for i, id := range ids {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString("cid=")
		query.WriteString(id.String())
	}

	var raw []ContentFileStatus
	if err := c.getJSON(ctx, "ContentFilesExist", "/content/available-content/?"+query.String(), &raw); err != nil {
		return nil, err
	}

	available := make(map[entity.ContentId]bool, len(raw))
	for _, st := range raw {
		available[st.ID] = st.Available
	}
	out := make([]ContentFileStatus, 0, len(ids))
	for _, id := range ids {
		out = append(out, ContentFileStatus{ID: id, Available: available[id]})
	}
	return out, nil
}

// EntityIDsByHash returns the ids of entities whose deployments are
// associated with the given content hash.
func (c *Client) EntityIDsByHash(ctx context.Context, hash string) ([]entity.ContentId, error) {
	var out []entity.ContentId
	if err := c.getJSON(ctx, "EntityIDsByHash", "/content/contents/"+hash+"/entities", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EntitiesByURN returns the active entities with at least one pointer
// matching the given URN prefix.
func (c *Client) EntitiesByURN(ctx context.Context, urn string) ([]EntityPointer, error) {
	var out []EntityPointer
	if err := c.getJSON(ctx, "EntitiesByURN", "/content/entities/active/collections/"+urn, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FailedDeployments retrieves the server's failed-deployment log.
func (c *Client) FailedDeployments(ctx context.Context) ([]FailedDeployment, error) {
	var out []FailedDeployment
	if err := c.getJSON(ctx, "FailedDeployments", "/content/failed-deployments", &out); err != nil {
		return nil, err
	}
	return out, nil
}

type parcelPointers struct {
	Pointers []entity.Parcel `json:"pointers"`
}

// SceneEntitiesForParcels returns the scene manifests currently active
// on the given parcels.
func (c *Client) SceneEntitiesForParcels(ctx context.Context, parcels []entity.Parcel) ([]entity.Entity, error) {
	var out []entity.Entity
	if err := c.postJSON(ctx, "SceneEntitiesForParcels", "/content/entities/active", parcelPointers{Pointers: parcels}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EntityInformation returns the audit record for one entity.
func (c *Client) EntityInformation(ctx context.Context, t entity.EntityType, id entity.ContentId) (EntityInformation, error) {
	var out EntityInformation
	if err := c.getJSON(ctx, "EntityInformation", "/content/audit/"+string(t)+"/"+id.String(), &out); err != nil {
		return EntityInformation{}, err
	}
	return out, nil
}

// Snapshot returns the server's current active-entity snapshot.
func (c *Client) Snapshot(ctx context.Context) (Snapshot, error) {
	var out Snapshot
	if err := c.getJSON(ctx, "Snapshot", "/content/snapshot", &out); err != nil {
		return Snapshot{}, err
	}
	return out, nil
}

// SnapshotEntities fetches and parses the snapshot's per-kind index
// document for t.
//
// The index is a large, append-only newline-delimited document. Parsing
// is deliberately lenient: only lines whose first non-blank byte is '{'
// are considered, and lines that fail to decode are skipped rather than
// failing the whole fetch.
func SnapshotEntities[T any](ctx context.Context, c *Client, t entity.EntityType, snap Snapshot) ([]EntitySnapshot[T], error) {
	ref, err := snap.Ref(t)
	if err != nil {
		return nil, wrapError(KindSerialization, "SnapshotEntities", err.Error(), err)
	}

	doc, err := c.fetchContent(ctx, "SnapshotEntities", ref.Hash)
	if err != nil {
		return nil, err
	}

	var out []EntitySnapshot[T]
	for _, line := range bytes.Split(doc, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			continue
		}
		var snap EntitySnapshot[T]
		if err := json.Unmarshal(trimmed, &snap); err != nil {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

// Download fetches the content stored under id and writes it to dest,
// creating any missing parent directories first.
func (c *Client) Download(ctx context.Context, id entity.ContentId, dest string) error {
	b, err := c.fetchContent(ctx, "Download", id)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(dest); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return wrapError(KindIO, "Download", "creating destination directory: "+err.Error(), err)
		}
	}
	if err := os.WriteFile(dest, b, 0o644); err != nil {
		return wrapError(KindIO, "Download", "writing destination file: "+err.Error(), err)
	}
	return nil
}

// Envelope is a fully assembled multipart submission body.
type Envelope struct {
	ContentType string
	Body        []byte
}

// Deploy submits an assembled envelope. Not idempotent at the protocol
// level: retries are the caller's decision and must use a freshly built
// envelope once the prior attempt is confirmed not accepted.
func (c *Client) Deploy(ctx context.Context, env Envelope) (DeployResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/content/entities", bytes.NewReader(env.Body))
	if err != nil {
		return DeployResponse{}, wrapError(KindNetwork, "Deploy", "building request: "+err.Error(), err)
	}
	req.Header.Set("Content-Type", env.ContentType)

	var out DeployResponse
	if err := c.doJSON("Deploy", req, &out); err != nil {
		return DeployResponse{}, err
	}
	return out, nil
}

// Status reports the server's health surface.
func (c *Client) Status(ctx context.Context) (ContentServerStatus, error) {
	var out ContentServerStatus
	if err := c.getJSON(ctx, "Status", "/content/status", &out); err != nil {
		return ContentServerStatus{}, err
	}
	return out, nil
}
