package deploy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"scene2d.dev/catalyst/entity"
)

// ErrMissingSceneEntity is returned when a deployment's payloads contain
// no parseable manifest to validate against.
var ErrMissingSceneEntity = errors.New("deploy: no scene manifest among deployment payloads")

// InvalidPointersError reports a pointer/ownership conflict: the
// deployment claims a parcel set that is not exactly the set it may
// claim.
type InvalidPointersError struct {
	Found    []string
	Expected []string
}

func (e *InvalidPointersError) Error() string {
	return fmt.Sprintf("deploy: invalid pointers: found [%s], expected [%s]",
		strings.Join(e.Found, " "), strings.Join(e.Expected, " "))
}

// RemoteLookup supplies the entities currently active on a parcel set.
// client.Client satisfies it.
type RemoteLookup interface {
	SceneEntitiesForParcels(ctx context.Context, parcels []entity.Parcel) ([]entity.Entity, error)
}

// ValidatePointers rejects deployments that would ambiguously overwrite
// another claim on the candidate's parcels.
//
// Manifests without scene metadata declare no authoritative parcel set
// and are not validated. Otherwise the manifest's pointers must equal
// the metadata's parcel set, and the remote authority must report either
// no current owner (first deployment) or a single entity whose pointer
// set is exactly the candidate's (full-ownership redeploy). Partial
// overlaps fail. Never mutates remote state.
func ValidatePointers(ctx context.Context, lookup RemoteLookup, ent *entity.Entity) error {
	meta, ok := entity.DecodeSceneMetadata(ent.Metadata)
	if !ok {
		return nil
	}

	expected := entity.PointerStrings(meta.Scene.Parcels)
	if !samePointerSet(ent.Pointers, expected) {
		return &InvalidPointersError{Found: ent.Pointers, Expected: expected}
	}

	remote, err := lookup.SceneEntitiesForParcels(ctx, meta.Scene.Parcels)
	if err != nil {
		return err
	}
	if len(remote) == 0 {
		// Unclaimed parcels; first deployment.
		return nil
	}
	if len(remote) > 1 || !samePointerSet(remote[0].Pointers, ent.Pointers) {
		return &InvalidPointersError{Found: remote[0].Pointers, Expected: ent.Pointers}
	}
	return nil
}

// samePointerSet compares pointer lists as sets; order and duplicates
// do not matter.
func samePointerSet(a, b []string) bool {
	as := uniqueSorted(a)
	bs := uniqueSorted(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func uniqueSorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	n := 0
	for i, s := range out {
		if i > 0 && s == out[i-1] {
			continue
		}
		out[n] = s
		n++
	}
	return out[:n]
}
