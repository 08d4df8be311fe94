package entity

import (
	"encoding/json"
	"testing"
)

func TestEntityType_WireNames(t *testing.T) {
	cases := []struct {
		in   string
		want EntityType
	}{
		{`"profile"`, TypeProfile},
		{`"scene"`, TypeScene},
		{`"wearable"`, TypeWearable},
		{`"emote"`, TypeEmote},
	}
	for _, tc := range cases {
		var got EntityType
		if err := json.Unmarshal([]byte(tc.in), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("unmarshal %s: got %q want %q", tc.in, got, tc.want)
		}
	}

	var bad EntityType
	if err := json.Unmarshal([]byte(`"statue"`), &bad); err == nil {
		t.Fatalf("unknown entity type accepted")
	}
}

func TestEntity_JSONRoundTrip(t *testing.T) {
	in := Entity{
		ID:        "bafkrei-entity",
		Version:   EntityVersion,
		Type:      TypeScene,
		Pointers:  []string{"0,0", "0,1"},
		Timestamp: 1661300000000,
		Content: []ContentFile{
			{File: "scene.json", Hash: "bafkrei-scene"},
			{File: "assets/tile.png", Hash: "bafkrei-tile"},
		},
		Metadata: json.RawMessage(`{"scene":{"base":"0,0","parcels":["0,0","0,1"]}}`),
	}

	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Entity
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if out.ID != in.ID || out.Version != in.Version || out.Type != in.Type || out.Timestamp != in.Timestamp {
		t.Fatalf("scalar fields mismatch: %+v", out)
	}
	if len(out.Pointers) != 2 || out.Pointers[0] != "0,0" {
		t.Fatalf("pointers mismatch: %v", out.Pointers)
	}
	if len(out.Content) != 2 || out.Content[1].Hash != "bafkrei-tile" {
		t.Fatalf("content mismatch: %v", out.Content)
	}
	if out.ContentHash("scene.json") != "bafkrei-scene" {
		t.Fatalf("ContentHash lookup failed")
	}
	if out.ContentHash("missing.png") != "" {
		t.Fatalf("ContentHash reported a hash for a missing path")
	}
}

func TestParcel_StringAndParse(t *testing.T) {
	p := Parcel{X: -12, Y: 34}
	if p.String() != "-12,34" {
		t.Fatalf("String: got %q", p.String())
	}

	parsed, err := ParseParcel("-12,34")
	if err != nil {
		t.Fatalf("ParseParcel: %v", err)
	}
	if parsed != p {
		t.Fatalf("ParseParcel: got %+v want %+v", parsed, p)
	}

	for _, bad := range []string{"", "12", "a,b", "1,2,3"} {
		if _, err := ParseParcel(bad); err == nil {
			t.Fatalf("ParseParcel accepted %q", bad)
		}
	}
}

func TestParcel_JSONIsPointerString(t *testing.T) {
	b, err := json.Marshal([]Parcel{{X: 0, Y: 0}, {X: 1, Y: -1}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `["0,0","1,-1"]` {
		t.Fatalf("wire form mismatch: %s", b)
	}

	var back []Parcel
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back) != 2 || back[1] != (Parcel{X: 1, Y: -1}) {
		t.Fatalf("round trip mismatch: %v", back)
	}
}

func TestDecodeSceneMetadata(t *testing.T) {
	meta, ok := DecodeSceneMetadata(json.RawMessage(`{"scene":{"base":"0,0","parcels":["0,0","0,1"]}}`))
	if !ok {
		t.Fatalf("expected scene metadata")
	}
	if len(meta.Scene.Parcels) != 2 || meta.Scene.Base != (Parcel{X: 0, Y: 0}) {
		t.Fatalf("unexpected descriptor: %+v", meta.Scene)
	}

	if _, ok := DecodeSceneMetadata(nil); ok {
		t.Fatalf("nil metadata decoded as scene")
	}
	if _, ok := DecodeSceneMetadata(json.RawMessage(`{"avatar":{}}`)); ok {
		t.Fatalf("non-scene metadata decoded as scene")
	}
	if _, ok := DecodeSceneMetadata(json.RawMessage(`not json`)); ok {
		t.Fatalf("malformed metadata decoded as scene")
	}
}
