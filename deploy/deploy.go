// Package deploy builds and submits versioned, content-addressed scene
// deployments.
//
// A deployment is a manifest plus the payload bytes of every new or
// changed file, wrapped in a multipart envelope together with the auth
// chain proving authorship. The manifest's own id is a fixed point:
// the hash of its serialization with the id held empty.
package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"scene2d.dev/catalyst/authchain"
	"scene2d.dev/catalyst/cidutil"
	"scene2d.dev/catalyst/client"
	"scene2d.dev/catalyst/entity"
)

const (
	mimePNG    = "image/png"
	mimeBinary = "application/octet-stream"
)

// TransientPrefixes name the compiled scene output the upstream tooling
// regenerates on every build. Content entries under these prefixes are
// never carried forward from a previous manifest.
var TransientPrefixes = []string{"./build", "/build", "build"}

// FileData is one part to be uploaded: the payload bytes, their content
// id, and the MIME type the envelope will declare. Scoped to a single
// deployment attempt and discarded after submission.
type FileData struct {
	CID   entity.ContentId
	Bytes []byte
	MIME  string
}

// BuildOptions tunes manifest construction. The zero value builds a
// scene manifest stamped with the current wall clock.
type BuildOptions struct {
	// Type of the manifest; defaults to scene.
	Type entity.EntityType

	// Now overrides the timestamp source, for deterministic builds.
	Now func() time.Time
}

// BuildEntityScene produces the upload set for a deployment: one
// FileData per local file plus, last, the serialized manifest itself.
// The returned ContentId is the manifest's own id.
//
// Content carried over from previous keeps its recorded hashes, minus
// anything under a transient output prefix. An unchanged local file
// hashes to the same ContentId it had before, so redeploying identical
// content re-uploads nothing new.
func BuildEntityScene(pointers []string, files map[string][]byte, previous *entity.Entity, opts BuildOptions) ([]FileData, entity.ContentId, error) {
	kind := opts.Type
	if kind == "" {
		kind = entity.TypeScene
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var content []entity.ContentFile
	var metadata json.RawMessage
	if previous != nil {
		for _, c := range previous.Content {
			if hasTransientPrefix(c.File) {
				continue
			}
			// A local file supersedes the carried entry for its path.
			if _, ok := files[c.File]; ok {
				continue
			}
			content = append(content, c)
		}
		metadata = previous.Metadata
	}

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	filesData := make([]FileData, 0, len(files)+1)
	for _, path := range paths {
		bytes := files[path]
		id := cidutil.Identify(bytes)
		content = append(content, entity.ContentFile{File: path, Hash: id})
		filesData = append(filesData, FileData{CID: id, Bytes: bytes, MIME: mimeFor(path)})
	}

	manifest := entity.Entity{
		ID:        "",
		Version:   entity.EntityVersion,
		Type:      kind,
		Pointers:  pointers,
		Timestamp: now().UnixMilli(),
		Content:   content,
		Metadata:  metadata,
	}

	// Two-phase identity: hash the manifest with its id empty, then
	// re-embed the id and serialize the upload payload. The id is never
	// recomputed after this point.
	unidentified, err := json.Marshal(manifest)
	if err != nil {
		return nil, "", fmt.Errorf("deploy: serializing manifest: %w", err)
	}
	id := cidutil.Identify(unidentified)

	manifest.ID = id
	identified, err := json.Marshal(manifest)
	if err != nil {
		return nil, "", fmt.Errorf("deploy: serializing manifest: %w", err)
	}
	filesData = append(filesData, FileData{CID: id, Bytes: identified, MIME: mimeBinary})

	return filesData, id, nil
}

func hasTransientPrefix(path string) bool {
	for _, prefix := range TransientPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func mimeFor(path string) string {
	if strings.HasSuffix(path, ".png") {
		return mimePNG
	}
	return mimeBinary
}

// findSceneEntity locates the manifest among the deployment payloads.
func findSceneEntity(files []FileData) (*entity.Entity, bool) {
	for _, f := range files {
		if f.MIME != mimeBinary {
			continue
		}
		var ent entity.Entity
		if err := json.Unmarshal(f.Bytes, &ent); err != nil {
			continue
		}
		if ent.Version == "" || !ent.Type.Valid() {
			continue
		}
		return &ent, true
	}
	return nil, false
}

// Deploy validates pointer ownership and submits the deployment to the
// given server.
//
// Validation is advisory: it runs at submission-build time, not
// atomically with the server's own conflict resolution, so a racing
// deployment on the same parcels is ultimately arbitrated remotely.
func Deploy(ctx context.Context, c *client.Client, entityID entity.ContentId, files []FileData, chain authchain.Chain) (client.DeployResponse, error) {
	ent, ok := findSceneEntity(files)
	if !ok {
		return client.DeployResponse{}, ErrMissingSceneEntity
	}
	if err := ValidatePointers(ctx, c, ent); err != nil {
		return client.DeployResponse{}, err
	}

	env, err := Form(entityID, chain, files)
	if err != nil {
		return client.DeployResponse{}, err
	}
	return c.Deploy(ctx, env)
}
