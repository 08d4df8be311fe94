package deploy

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"scene2d.dev/catalyst/cidutil"
	"scene2d.dev/catalyst/entity"
)

// Archive writes a deterministic TAR of a submission's payload set, for
// audit trails of what exactly was sent to a server.
//
// Output is byte-for-byte reproducible for the same payload set: entries
// are ordered lexicographically by CID, duplicates collapse, and TAR
// headers are normalized (no timestamps, fixed mode). Every payload is
// re-verified against its CID before it is written; the manifest payload
// is verified against the hash of its id-empty serialization, since its
// uploaded bytes carry the id populated.
func Archive(w io.Writer, files []FileData) error {
	uniq := make(map[string]FileData, len(files))
	for _, f := range files {
		uniq[f.CID.String()] = f
	}
	ids := make([]string, 0, len(uniq))
	for id := range uniq {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tw := tar.NewWriter(w)
	for _, id := range ids {
		f := uniq[id]
		got := cidutil.Identify(f.Bytes)
		if got.String() != id && !manifestMatchesId(f.Bytes, id) {
			_ = tw.Close()
			return fmt.Errorf("deploy: payload %s does not match its id (got %s)", id, got)
		}
		hdr := &tar.Header{
			Name:     "payloads/" + id,
			Typeflag: tar.TypeReg,
			Mode:     0o444,
			Size:     int64(len(f.Bytes)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			_ = tw.Close()
			return err
		}
		if _, err := tw.Write(f.Bytes); err != nil {
			_ = tw.Close()
			return err
		}
	}
	return tw.Close()
}

// manifestMatchesId reports whether b is a manifest whose embedded id
// equals id and is the hash of the manifest's id-empty serialization.
func manifestMatchesId(b []byte, id string) bool {
	var ent entity.Entity
	if err := json.Unmarshal(b, &ent); err != nil {
		return false
	}
	if ent.ID.String() != id {
		return false
	}
	ent.ID = ""
	unidentified, err := json.Marshal(ent)
	if err != nil {
		return false
	}
	return cidutil.Identify(unidentified).String() == id
}
