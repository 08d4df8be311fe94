package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"scene2d.dev/catalyst/cache"
	"scene2d.dev/catalyst/cidutil"
	"scene2d.dev/catalyst/entity"
)

func newTestClient(t *testing.T, handler http.Handler, opts Options) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func TestStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/content/status" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"name":"peer-one","version":"v3","currentTime":1661300000000,"lastImmutableTime":0,"historySize":42}`))
	}), Options{})

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Name != "peer-one" || st.Version != "v3" || st.HistorySize != 42 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestChallenge(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/content/challenge" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"challengeText":"a-random-challenge"}`))
	}), Options{})

	text, err := c.Challenge(context.Background())
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	if text != "a-random-challenge" {
		t.Fatalf("challenge text: %q", text)
	}
}

func TestActiveEntities(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/content/contents/an-id/active-entities" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`["entity-id"]`))
	}), Options{})

	ids, err := c.ActiveEntities(context.Background(), "an-id")
	if err != nil {
		t.Fatalf("ActiveEntities: %v", err)
	}
	if len(ids) != 1 || ids[0] != "entity-id" {
		t.Fatalf("ids: %v", ids)
	}
}

func TestEntityIDsByHash(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/content/contents/a-cid/entities" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`["bafkrei-one","bafkrei-two"]`))
	}), Options{})

	ids, err := c.EntityIDsByHash(context.Background(), "a-cid")
	if err != nil {
		t.Fatalf("EntityIDsByHash: %v", err)
	}
	if len(ids) != 2 || ids[1] != "bafkrei-two" {
		t.Fatalf("ids: %v", ids)
	}
}

func TestEntitiesByURN(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/content/entities/active/collections/a-urn" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"pointer":"0,0","entityId":"bafkrei-one"}]`))
	}), Options{})

	out, err := c.EntitiesByURN(context.Background(), "a-urn")
	if err != nil {
		t.Fatalf("EntitiesByURN: %v", err)
	}
	if len(out) != 1 || out[0].Pointer != "0,0" || out[0].EntityID != "bafkrei-one" {
		t.Fatalf("entities: %+v", out)
	}
}

func TestFailedDeployments(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/content/failed-deployments" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"failedDeploymentsRepo":"repo","entityType":"scene","entityId":"bafkrei-one","reason":"DEPLOYMENT_ERROR","errorDescription":"boom"}]`))
	}), Options{})

	out, err := c.FailedDeployments(context.Background())
	if err != nil {
		t.Fatalf("FailedDeployments: %v", err)
	}
	if len(out) != 1 || out[0].EntityType != entity.TypeScene || out[0].Reason != "DEPLOYMENT_ERROR" {
		t.Fatalf("failed deployments: %+v", out)
	}
}

func TestContentFileExists(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method: %s", r.Method)
		}
		switch r.URL.Path {
		case "/content/contents/present":
			w.WriteHeader(http.StatusOK)
		case "/content/contents/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}), Options{})

	ctx := context.Background()
	ok, err := c.ContentFileExists(ctx, "present")
	if err != nil || !ok {
		t.Fatalf("present: ok=%t err=%v", ok, err)
	}
	ok, err = c.ContentFileExists(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("missing: ok=%t err=%v", ok, err)
	}
	// A server error is also "does not exist": the probe is lenient on
	// purpose and this behavior is pinned, not tightened.
	ok, err = c.ContentFileExists(ctx, "broken")
	if err != nil || ok {
		t.Fatalf("broken: ok=%t err=%v", ok, err)
	}
}

func TestContentFilesExist_OrderIndependent(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/content/available-content/" {
			t.Errorf("path: %s", r.URL.Path)
		}
		if got := r.URL.RawQuery; got != "cid=a-cid&cid=another-cid" {
			t.Errorf("query: %s", got)
		}
		// Deliberately reversed relative to the request.
		_, _ = w.Write([]byte(`[{"cid":"another-cid","available":false},{"cid":"a-cid","available":true}]`))
	}), Options{})

	out, err := c.ContentFilesExist(context.Background(), []entity.ContentId{"a-cid", "another-cid"})
	if err != nil {
		t.Fatalf("ContentFilesExist: %v", err)
	}
	want := []ContentFileStatus{
		{ID: "a-cid", Available: true},
		{ID: "another-cid", Available: false},
	}
	if len(out) != 2 || out[0] != want[0] || out[1] != want[1] {
		t.Fatalf("statuses: %+v", out)
	}
}

func TestSceneEntitiesForParcels(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/content/entities/active" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Pointers []string `json:"pointers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("request body: %v", err)
		}
		if len(body.Pointers) != 1 || body.Pointers[0] != "0,0" {
			t.Errorf("pointers: %v", body.Pointers)
		}
		_, _ = w.Write([]byte(`[{"id":"bafkrei-one","version":"v3","type":"scene","pointers":["0,0"],"timestamp":1,"content":[]}]`))
	}), Options{})

	out, err := c.SceneEntitiesForParcels(context.Background(), []entity.Parcel{{X: 0, Y: 0}})
	if err != nil {
		t.Fatalf("SceneEntitiesForParcels: %v", err)
	}
	if len(out) != 1 || out[0].ID != "bafkrei-one" || out[0].Pointers[0] != "0,0" {
		t.Fatalf("entities: %+v", out)
	}
}

func TestEntityInformation(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/content/audit/scene/bafkrei-one" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"version":"v3","localTimestamp":1661300000000,"authChain":[{"type":"SIGNER","payload":"0xowner","signature":""}]}`))
	}), Options{})

	info, err := c.EntityInformation(context.Background(), entity.TypeScene, "bafkrei-one")
	if err != nil {
		t.Fatalf("EntityInformation: %v", err)
	}
	if info.LocalTimestamp != 1661300000000 || len(info.AuthChain) != 1 || info.AuthChain[0].Payload != "0xowner" {
		t.Fatalf("information: %+v", info)
	}
}

func TestSnapshotEntities_LenientLineParsing(t *testing.T) {
	// Line 1 is a header, line 2 is blank, line 3 is a record; only the
	// record parses.
	doc := "### snapshot header\n\n{\"entityId\":\"bafkrei-one\",\"pointers\":[\"0,0\"]}\n"
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/content/snapshot":
			_, _ = w.Write([]byte(`{"entities":{"scene":{"hash":"bafybei-scene-index"},"profile":{"hash":"p"},"wearable":{"hash":"w"},"emote":{"hash":"e"}}}`))
		case "/content/contents/bafybei-scene-index":
			_, _ = w.Write([]byte(doc))
		default:
			t.Errorf("path: %s", r.URL.Path)
		}
	}), Options{})

	ctx := context.Background()
	snap, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Entities.Scene.Hash != "bafybei-scene-index" {
		t.Fatalf("snapshot: %+v", snap)
	}

	out, err := SnapshotEntities[entity.Parcel](ctx, c, entity.TypeScene, snap)
	if err != nil {
		t.Fatalf("SnapshotEntities: %v", err)
	}
	if len(out) != 1 || out[0].EntityID != "bafkrei-one" || out[0].Pointers[0] != (entity.Parcel{X: 0, Y: 0}) {
		t.Fatalf("entries: %+v", out)
	}
}

func TestSnapshotEntities_SkipsMalformedLines(t *testing.T) {
	doc := "{\"entityId\":\"bafkrei-one\",\"pointers\":[]}\n{not json\n  {\"entityId\":\"bafkrei-two\",\"pointers\":[]}\n"
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(doc))
	}), Options{})

	snap := Snapshot{Entities: SnapshotIndex{Scene: SnapshotRef{Hash: "index"}}}
	out, err := SnapshotEntities[entity.Parcel](context.Background(), c, entity.TypeScene, snap)
	if err != nil {
		t.Fatalf("SnapshotEntities: %v", err)
	}
	// The malformed middle line is skipped; the indented record parses.
	if len(out) != 2 || out[1].EntityID != "bafkrei-two" {
		t.Fatalf("entries: %+v", out)
	}
}

func TestSnapshotEntities_GzipEncodedIndex(t *testing.T) {
	doc := "{\"entityId\":\"bafkrei-one\",\"pointers\":[\"0,0\"]}\n"
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip" {
			t.Errorf("Accept-Encoding: %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "gzip")
		zw := gzip.NewWriter(w)
		_, _ = zw.Write([]byte(doc))
		_ = zw.Close()
	}), Options{})

	snap := Snapshot{Entities: SnapshotIndex{Scene: SnapshotRef{Hash: "index"}}}
	out, err := SnapshotEntities[entity.Parcel](context.Background(), c, entity.TypeScene, snap)
	if err != nil {
		t.Fatalf("SnapshotEntities: %v", err)
	}
	if len(out) != 1 || out[0].EntityID != "bafkrei-one" {
		t.Fatalf("entries: %+v", out)
	}
}

func TestDownload_CreatesParentDirectories(t *testing.T) {
	content := []byte("File Content")
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/content/contents/a-hash" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_, _ = w.Write(content)
	}), Options{})

	dest := filepath.Join(t.TempDir(), "nested", "deeper", "test.txt")
	if err := c.Download(context.Background(), "a-hash", dest); err != nil {
		t.Fatalf("Download: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("downloaded bytes: %q", got)
	}
}

func TestDownload_WriteThroughCache(t *testing.T) {
	content := []byte("cacheable scene asset")
	id := cidutil.Identify(content)
	hits := 0
	dir, err := cache.NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("cache.NewDir: %v", err)
	}

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/content/contents/"+id.String() {
			t.Errorf("path: %s", r.URL.Path)
		}
		_, _ = w.Write(content)
	}), Options{Cache: dir})

	ctx := context.Background()
	tmp := t.TempDir()
	if err := c.Download(ctx, id, filepath.Join(tmp, "first.bin")); err != nil {
		t.Fatalf("Download(1): %v", err)
	}
	if err := c.Download(ctx, id, filepath.Join(tmp, "second.bin")); err != nil {
		t.Fatalf("Download(2): %v", err)
	}
	if hits != 1 {
		t.Fatalf("server hits: got %d want 1 (second download must come from the cache)", hits)
	}
	got, err := os.ReadFile(filepath.Join(tmp, "second.bin"))
	if err != nil || string(got) != string(content) {
		t.Fatalf("cached download bytes: %q err=%v", got, err)
	}
}

func TestDeploy(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/content/entities" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "multipart/form-data; boundary=test-boundary" {
			t.Errorf("content type: %q", got)
		}
		_, _ = w.Write([]byte(`{"creationTimestamp":1661300001234}`))
	}), Options{})

	resp, err := c.Deploy(context.Background(), Envelope{
		ContentType: "multipart/form-data; boundary=test-boundary",
		Body:        []byte("--test-boundary--\r\n"),
	})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if resp.CreationTimestamp != 1661300001234 {
		t.Fatalf("creation timestamp: %d", resp.CreationTimestamp)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/content/status":
			http.Error(w, "internal failure", http.StatusInternalServerError)
		case "/content/snapshot":
			_, _ = w.Write([]byte(`{"entities": not-json`))
		}
	}), Options{})

	ctx := context.Background()

	_, err := c.Status(ctx)
	if !IsKind(err, KindServer) {
		t.Fatalf("server failure: got %v", err)
	}
	var se *Error
	if !errors.As(err, &se) || se.Status != http.StatusInternalServerError {
		t.Fatalf("server error status: %+v", se)
	}

	if _, err := c.Snapshot(ctx); !IsKind(err, KindSerialization) {
		t.Fatalf("malformed body: got %v", err)
	}

	// Transport failure: nothing listens here.
	dead, err := New("http://127.0.0.1:1", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := dead.Status(ctx); !IsKind(err, KindNetwork) {
		t.Fatalf("transport failure: got %v", err)
	}
}
