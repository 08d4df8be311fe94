package entity

import "encoding/json"

// SceneMetadata is the scene-kind metadata payload. Only the fields this
// core validates against are modeled; everything else rides along in the
// manifest's raw metadata untouched.
type SceneMetadata struct {
	Scene SceneDescriptor `json:"scene"`
}

// SceneDescriptor carries the authoritative parcel claim of a scene.
type SceneDescriptor struct {
	Base    Parcel   `json:"base"`
	Parcels []Parcel `json:"parcels"`
}

// DecodeSceneMetadata decodes scene metadata from a manifest's raw
// metadata. ok is false when metadata is absent or does not carry a
// scene descriptor; validation is skipped for such manifests.
func DecodeSceneMetadata(raw json.RawMessage) (SceneMetadata, bool) {
	if len(raw) == 0 {
		return SceneMetadata{}, false
	}
	var meta SceneMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return SceneMetadata{}, false
	}
	if len(meta.Scene.Parcels) == 0 {
		return SceneMetadata{}, false
	}
	return meta, true
}
